package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// The enums in this file are closed sets. Each one maps to the exact
// text stored by earlier versions of the application so existing rows
// keep reading back correctly; that text is also what the JSON API
// exchanges.

// Status is the progress state of a task.
type Status uint8

const (
	StatusTodo  Status = iota // "A fazer"
	StatusDoing               // "Fazendo"
	StatusDone                // "Feito"
)

var statusText = [...]string{"A fazer", "Fazendo", "Feito"}

// ParseStatus matches the stored text case-insensitively.
func ParseStatus(raw string) (Status, error) {
	s := strings.TrimSpace(raw)
	for i, t := range statusText {
		if strings.EqualFold(s, t) {
			return Status(i), nil
		}
	}
	return StatusTodo, fmt.Errorf("unknown status %q", raw)
}

func (s Status) String() string {
	if int(s) < len(statusText) {
		return statusText[s]
	}
	return statusText[StatusTodo]
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Scan reads a status column. Unknown legacy values read as StatusTodo.
func (s *Status) Scan(src any) error {
	txt, err := scanText(src)
	if err != nil {
		return err
	}
	v, _ := ParseStatus(txt)
	*s = v
	return nil
}

func (s Status) Value() (driver.Value, error) { return s.String(), nil }

// Priority ranks tasks and insights.
type Priority uint8

const (
	PriorityHigh   Priority = iota // "Alta"
	PriorityMedium                 // "Média"
	PriorityLow                    // "Baixa"
)

var priorityText = [...]string{"Alta", "Média", "Baixa"}

// ParsePriority accepts the stored text case-insensitively plus the
// unaccented spelling "Media".
func ParsePriority(raw string) (Priority, error) {
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, "media") {
		return PriorityMedium, nil
	}
	for i, t := range priorityText {
		if strings.EqualFold(s, t) {
			return Priority(i), nil
		}
	}
	return PriorityMedium, fmt.Errorf("unknown priority %q", raw)
}

func (p Priority) String() string {
	if int(p) < len(priorityText) {
		return priorityText[p]
	}
	return priorityText[PriorityMedium]
}

// Rank orders priorities High < Medium < Low for sorting.
func (p Priority) Rank() int { return int(p) }

func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Scan reads a priority column. Blank or unknown values read as PriorityMedium.
func (p *Priority) Scan(src any) error {
	txt, err := scanText(src)
	if err != nil {
		return err
	}
	v, _ := ParsePriority(txt)
	*p = v
	return nil
}

func (p Priority) Value() (driver.Value, error) { return p.String(), nil }

// Role is the authorization level of a user.
type Role uint8

const (
	RoleUser Role = iota
	RoleAdmin
)

var roleText = [...]string{"user", "admin"}

func ParseRole(raw string) (Role, error) {
	s := strings.TrimSpace(raw)
	for i, t := range roleText {
		if strings.EqualFold(s, t) {
			return Role(i), nil
		}
	}
	return RoleUser, fmt.Errorf("unknown role %q", raw)
}

func (r Role) String() string {
	if int(r) < len(roleText) {
		return roleText[r]
	}
	return roleText[RoleUser]
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (r *Role) Scan(src any) error {
	txt, err := scanText(src)
	if err != nil {
		return err
	}
	v, _ := ParseRole(txt)
	*r = v
	return nil
}

func (r Role) Value() (driver.Value, error) { return r.String(), nil }

// InsightStatus tracks whether an insight became a task.
type InsightStatus uint8

const (
	InsightIdea      InsightStatus = iota // "Ideia"
	InsightConverted                      // "Convertido"
)

var insightStatusText = [...]string{"Ideia", "Convertido"}

func ParseInsightStatus(raw string) (InsightStatus, error) {
	s := strings.TrimSpace(raw)
	for i, t := range insightStatusText {
		if strings.EqualFold(s, t) {
			return InsightStatus(i), nil
		}
	}
	return InsightIdea, fmt.Errorf("unknown insight status %q", raw)
}

func (s InsightStatus) String() string {
	if int(s) < len(insightStatusText) {
		return insightStatusText[s]
	}
	return insightStatusText[InsightIdea]
}

func (s InsightStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *InsightStatus) UnmarshalText(b []byte) error {
	v, err := ParseInsightStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s *InsightStatus) Scan(src any) error {
	txt, err := scanText(src)
	if err != nil {
		return err
	}
	v, _ := ParseInsightStatus(txt)
	*s = v
	return nil
}

func (s InsightStatus) Value() (driver.Value, error) { return s.String(), nil }

// Permission is the level granted by a plan share.
type Permission uint8

const (
	PermissionRead Permission = iota
	PermissionEdit
)

var permissionText = [...]string{"read", "edit"}

func ParsePermission(raw string) (Permission, error) {
	s := strings.TrimSpace(raw)
	for i, t := range permissionText {
		if strings.EqualFold(s, t) {
			return Permission(i), nil
		}
	}
	return PermissionRead, fmt.Errorf("unknown permission %q", raw)
}

func (p Permission) String() string {
	if int(p) < len(permissionText) {
		return permissionText[p]
	}
	return permissionText[PermissionRead]
}

func (p Permission) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Permission) UnmarshalText(b []byte) error {
	v, err := ParsePermission(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p *Permission) Scan(src any) error {
	txt, err := scanText(src)
	if err != nil {
		return err
	}
	v, _ := ParsePermission(txt)
	*p = v
	return nil
}

func (p Permission) Value() (driver.Value, error) { return p.String(), nil }

// RecurrenceType selects how a recurrence rule picks dates.
type RecurrenceType uint8

const (
	RecurrenceNone       RecurrenceType = iota // ""
	RecurrenceEveryNDays                       // "n_dias"
	RecurrenceDayOfMonth                       // "dia_mes"
	RecurrenceWeekdays                         // "dia_semana"
)

var recurrenceText = [...]string{"", "n_dias", "dia_mes", "dia_semana"}

var recurrenceAliases = map[string]RecurrenceType{
	"":             RecurrenceNone,
	"none":         RecurrenceNone,
	"n_dias":       RecurrenceEveryNDays,
	"every_n_days": RecurrenceEveryNDays,
	"dia_mes":      RecurrenceDayOfMonth,
	"day_of_month": RecurrenceDayOfMonth,
	"dia_semana":   RecurrenceWeekdays,
	"weekdays":     RecurrenceWeekdays,
}

func ParseRecurrenceType(raw string) (RecurrenceType, error) {
	if v, ok := recurrenceAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v, nil
	}
	return RecurrenceNone, fmt.Errorf("unknown recurrence type %q", raw)
}

func (t RecurrenceType) String() string {
	if int(t) < len(recurrenceText) {
		return recurrenceText[t]
	}
	return ""
}

func (t RecurrenceType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *RecurrenceType) UnmarshalText(b []byte) error {
	v, err := ParseRecurrenceType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t *RecurrenceType) Scan(src any) error {
	txt, err := scanText(src)
	if err != nil {
		return err
	}
	v, _ := ParseRecurrenceType(txt)
	*t = v
	return nil
}

func (t RecurrenceType) Value() (driver.Value, error) { return t.String(), nil }

// scanText normalises the driver representations of a text column.
func scanText(src any) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan %T into text enum", src)
	}
}
