package model

import (
	"strings"
	"time"
)

// Details holds the free-text planning columns shared by tasks and
// insights. Every field is optional and an absent value is stored as
// the empty string, never NULL.
type Details struct {
	What       string `db:"o_que" json:"o_que"`           // what to do
	How        string `db:"como" json:"como"`             // how to do it
	Where      string `db:"onde" json:"onde"`             // where it happens
	CTA        string `db:"cta" json:"cta"`               // call to action
	Duration   string `db:"duracao" json:"duracao"`       // duration in minutes, free text
	KPI        string `db:"kpi_meta" json:"kpi_meta"`     // KPI / goal
	DayType    string `db:"tipo_dia" json:"tipo_dia"`     // type of day
	Weekday    string `db:"dia_semana" json:"dia_semana"` // weekday label
	MacroTheme string `db:"tema_macro" json:"tema_macro"` // macro theme
	Angle      string `db:"angulo" json:"angulo"`         // angle / track
	Channel    string `db:"canal_area" json:"canal_area"` // channel / area
}

// Recurrence is the rule a task was generated from. It is copied onto
// every generated instance; SeriesID ties the instances of one
// expansion together.
//
// Fields:
//
//	Type       – none, every-n-days, day-of-month or weekdays.
//	Interval   – step in days for every-n-days (>= 1).
//	DayOfMonth – 1..31 for day-of-month.
//	Weekdays   – weekday indexes (Monday=0) for weekdays.
//	Start, End – inclusive date range.
//	SeriesID   – identifier shared by every instance of one expansion.
type Recurrence struct {
	Type       RecurrenceType `db:"recorrencia_tipo" json:"recorrencia_tipo"`
	Interval   int            `db:"recorrencia_intervalo" json:"recorrencia_intervalo"`
	DayOfMonth int            `db:"recorrencia_dia_mes" json:"recorrencia_dia_mes"`
	Weekdays   Weekdays       `db:"recorrencia_dias_semana" json:"recorrencia_dias_semana"`
	Start      *Date          `db:"recorrencia_inicio" json:"recorrencia_inicio"`
	End        *Date          `db:"recorrencia_fim" json:"recorrencia_fim"`
	SeriesID   string         `db:"serie_id" json:"serie_id,omitempty"`
}

// IsSpecified reports whether the rule should expand into several
// tasks: it needs a type and both range dates.
func (r Recurrence) IsSpecified() bool {
	return r.Type != RecurrenceNone && r.Start != nil && r.End != nil &&
		!r.Start.IsZero() && !r.End.IsZero()
}

// TaskFields is everything about a task except identity and ownership.
type TaskFields struct {
	Description         string   `db:"descricao" json:"descricao"`
	Date                Date     `db:"data" json:"data"`
	Status              Status   `db:"status" json:"status"`
	Priority            Priority `db:"prioridade" json:"prioridade"`
	Category            string   `db:"categoria" json:"categoria"`
	OriginalDescription string   `db:"descricao_original" json:"descricao_original"`
	Details
	Recurrence
}

// Task ("atividade") represents a row in the `atividades` table.
//
// Fields:
//
//	ID        – primary key identifier.
//	OwnerID   – user that owns the task (0 only for legacy rows).
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Task struct {
	ID      uint64 `db:"id" json:"id"`           // atividades.id
	OwnerID uint64 `db:"user_id" json:"user_id"` // atividades.user_id
	TaskFields
	CreatedAt time.Time `db:"created_at" json:"created_at"` // atividades.created_at
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"` // atividades.updated_at
}

// DescriptionFrom applies the display precedence: the "what" text wins
// unless it is blank, then the original action description is used.
func DescriptionFrom(what, original string) string {
	if strings.TrimSpace(what) != "" {
		return what
	}
	return original
}

// TaskPatch is a partial task update. Only fields marked Set are written.
type TaskPatch struct {
	Description         Optional[string]   `json:"descricao"`
	Date                Optional[Date]     `json:"data"`
	Status              Optional[Status]   `json:"status"`
	Priority            Optional[Priority] `json:"prioridade"`
	Category            Optional[string]   `json:"categoria"`
	OriginalDescription Optional[string]   `json:"descricao_original"`
	DetailsPatch
}

// DetailsPatch is the partial form of Details.
type DetailsPatch struct {
	What       Optional[string] `json:"o_que"`
	How        Optional[string] `json:"como"`
	Where      Optional[string] `json:"onde"`
	CTA        Optional[string] `json:"cta"`
	Duration   Optional[string] `json:"duracao"`
	KPI        Optional[string] `json:"kpi_meta"`
	DayType    Optional[string] `json:"tipo_dia"`
	Weekday    Optional[string] `json:"dia_semana"`
	MacroTheme Optional[string] `json:"tema_macro"`
	Angle      Optional[string] `json:"angulo"`
	Channel    Optional[string] `json:"canal_area"`
}

// Changes returns the column -> value pairs for the set fields.
func (p DetailsPatch) Changes() map[string]any {
	out := map[string]any{}
	setString(out, "o_que", p.What)
	setString(out, "como", p.How)
	setString(out, "onde", p.Where)
	setString(out, "cta", p.CTA)
	setString(out, "duracao", p.Duration)
	setString(out, "kpi_meta", p.KPI)
	setString(out, "tipo_dia", p.DayType)
	setString(out, "dia_semana", p.Weekday)
	setString(out, "tema_macro", p.MacroTheme)
	setString(out, "angulo", p.Angle)
	setString(out, "canal_area", p.Channel)
	return out
}

// Changes returns the column -> value pairs for the set fields.
func (p TaskPatch) Changes() map[string]any {
	out := p.DetailsPatch.Changes()
	setString(out, "descricao", p.Description)
	setString(out, "categoria", p.Category)
	setString(out, "descricao_original", p.OriginalDescription)
	if p.Date.Set {
		out["data"] = p.Date.Value
	}
	if p.Status.Set {
		out["status"] = p.Status.Value
	}
	if p.Priority.Set {
		out["prioridade"] = p.Priority.Value
	}
	return out
}

func setString(out map[string]any, column string, v Optional[string]) {
	if v.Set {
		out[column] = v.Value
	}
}
