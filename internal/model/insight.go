package model

import "time"

// Insight is a captured idea that may later become a task. Status moves
// from Ideia to Convertido exactly once.
//
// Fields:
//
//	ID          – primary key identifier.
//	OwnerID     – user that owns the insight.
//	Description – idea text.
//	PlannedDate – optional date the idea is meant for.
//	Status      – Ideia or Convertido.
//	Category    – free-text category.
//	Priority    – defaults to Baixa.
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last update timestamp.
type Insight struct {
	ID          uint64        `db:"id" json:"id"`                       // insights.id
	OwnerID     uint64        `db:"user_id" json:"user_id"`             // insights.user_id
	Description string        `db:"descricao" json:"descricao"`         // insights.descricao
	PlannedDate *Date         `db:"data_prevista" json:"data_prevista"` // insights.data_prevista (nullable)
	Status      InsightStatus `db:"status" json:"status"`               // insights.status
	Category    string        `db:"categoria" json:"categoria"`         // insights.categoria
	Priority    Priority      `db:"prioridade" json:"prioridade"`       // insights.prioridade
	Details
	CreatedAt time.Time `db:"created_at" json:"created_at"` // insights.created_at
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"` // insights.updated_at
}

// InsightPatch is a partial insight update. Only fields marked Set are written.
type InsightPatch struct {
	Description Optional[string]        `json:"descricao"`
	PlannedDate Optional[Date]          `json:"data_prevista"`
	Status      Optional[InsightStatus] `json:"status"`
	Category    Optional[string]        `json:"categoria"`
	Priority    Optional[Priority]      `json:"prioridade"`
	DetailsPatch
}

// Changes returns the column -> value pairs for the set fields. A null
// planned date clears the column.
func (p InsightPatch) Changes() map[string]any {
	out := p.DetailsPatch.Changes()
	setString(out, "descricao", p.Description)
	setString(out, "categoria", p.Category)
	if p.PlannedDate.Set {
		if p.PlannedDate.Null || p.PlannedDate.Value.IsZero() {
			out["data_prevista"] = nil
		} else {
			out["data_prevista"] = p.PlannedDate.Value
		}
	}
	if p.Status.Set {
		out["status"] = p.Status.Value
	}
	if p.Priority.Set {
		out["prioridade"] = p.Priority.Value
	}
	return out
}
