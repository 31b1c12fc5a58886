package model

import "time"

// Strategy ("estrategia") is a weekly theme. WeekEnd is always
// WeekStart + 6 days.
//
// Fields:
//
//	ID          – primary key identifier.
//	OwnerID     – user that owns the strategy.
//	Theme       – macro theme of the week.
//	WeekStart   – first day of the week.
//	WeekEnd     – last day of the week.
//	Description – angles joined with " | ".
//	CreatedAt   – creation timestamp.
type Strategy struct {
	ID          uint64    `db:"id" json:"id"`                                   // estrategia.id
	OwnerID     uint64    `db:"user_id" json:"user_id"`                         // estrategia.user_id
	Theme       string    `db:"tema" json:"tema"`                               // estrategia.tema
	WeekStart   Date      `db:"semana_inicio" json:"semana_inicio"`             // estrategia.semana_inicio
	WeekEnd     Date      `db:"semana_fim" json:"semana_fim"`                   // estrategia.semana_fim
	Description string    `db:"descricao_detalhada" json:"descricao_detalhada"` // estrategia.descricao_detalhada
	CreatedAt   time.Time `db:"created_at" json:"created_at"`                   // estrategia.created_at
}

// WeekLength is the number of days a strategy spans after its start.
const WeekLength = 6
