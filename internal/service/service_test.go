package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/model"
	"github.com/iliyamo/phdplan/internal/queue"
	"github.com/iliyamo/phdplan/internal/recurrence"
	"github.com/iliyamo/phdplan/internal/repository"
)

var fixedNow = time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

var taskCols = []string{
	"id", "user_id", "descricao", "data", "status", "prioridade", "categoria", "descricao_original",
	"o_que", "como", "onde", "cta", "duracao", "kpi_meta", "tipo_dia", "dia_semana",
	"tema_macro", "angulo", "canal_area",
	"recorrencia_tipo", "recorrencia_intervalo", "recorrencia_dia_mes", "recorrencia_dias_semana",
	"recorrencia_inicio", "recorrencia_fim", "serie_id", "created_at", "updated_at",
}

var insightCols = []string{
	"id", "user_id", "descricao", "data_prevista", "status", "categoria", "prioridade",
	"o_que", "como", "onde", "cta", "duracao", "kpi_meta", "tipo_dia", "dia_semana",
	"tema_macro", "angulo", "canal_area", "created_at", "updated_at",
}

var shareCols = []string{"id", "owner_id", "shared_with_email", "permission", "created_at"}

func taskRows(tasks ...model.Task) *sqlmock.Rows {
	rows := sqlmock.NewRows(taskCols)
	for _, t := range tasks {
		rows.AddRow(t.ID, t.OwnerID, t.Description, t.Date.String(), t.Status.String(), t.Priority.String(),
			t.Category, t.OriginalDescription,
			t.What, "", "", "", "", "", "", "", "", "", "",
			"", 0, 0, "", nil, nil, t.Recurrence.SeriesID, fixedNow, fixedNow)
	}
	return rows
}

func insightRow(id, owner uint64, status string, planned any) *sqlmock.Rows {
	return sqlmock.NewRows(insightCols).AddRow(id, owner, "Apply for grant", planned, status, "Funding", "Baixa",
		"Apply for grant", "online", "", "", "", "", "", "", "", "", "", fixedNow, fixedNow)
}

type published struct {
	queue string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, q string, ev any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{queue: q, event: ev})
	return p.err
}

func (p *recordingPublisher) snapshot() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func newPlanner(t *testing.T) (*Planner, sqlmock.Sqlmock, *recordingPublisher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	pub := &recordingPublisher{}
	p := NewPlanner(sqlx.NewDb(db, "mysql"), pub, nil)
	p.now = func() time.Time { return fixedNow }
	p.newSeries = func() string { return "series-1" }
	return p, mock, pub
}

var (
	alice = access.Actor{ID: 1, Email: "alice@example.com", Role: model.RoleUser}
	bob   = access.Actor{ID: 2, Email: "bob@example.com", Role: model.RoleUser}
	admin = access.Actor{ID: 9, Email: "root@example.com", Role: model.RoleAdmin}
)

func expectGrants(mock sqlmock.Sqlmock, email string, shares ...model.PlanShare) {
	rows := sqlmock.NewRows(shareCols)
	for _, s := range shares {
		rows.AddRow(s.ID, s.OwnerID, s.SharedWithEmail, s.Permission.String(), fixedNow)
	}
	mock.ExpectQuery(`SELECT .* FROM plan_shares WHERE shared_with_email = \?`).
		WithArgs(email).
		WillReturnRows(rows)
}

func aliceTask(id uint64) model.Task {
	return model.Task{ID: id, OwnerID: alice.ID, TaskFields: model.TaskFields{
		Description: "Write chapter", Date: model.NewDate(2026, 1, 5), Priority: model.PriorityHigh, Category: "Tese",
	}}
}

func TestListTasksIncludesSharedOwners(t *testing.T) {
	p, mock, _ := newPlanner(t)

	expectGrants(mock, bob.Email, model.PlanShare{ID: 1, OwnerID: alice.ID, SharedWithEmail: bob.Email})
	mock.ExpectQuery(`SELECT .* FROM atividades WHERE user_id IN \(\?,\?\) ORDER BY id DESC`).
		WithArgs(bob.ID, alice.ID).
		WillReturnRows(taskRows(aliceTask(3)))

	tasks, err := p.ListTasks(context.Background(), bob, repository.Page{Limit: 1000})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, alice.ID, tasks[0].OwnerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTaskForbiddenForStranger(t *testing.T) {
	p, mock, _ := newPlanner(t)

	expectGrants(mock, bob.Email)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM atividades WHERE id = \?`).WithArgs(3).WillReturnRows(taskRows(aliceTask(3)))
	mock.ExpectRollback()

	_, err := p.UpdateTask(context.Background(), bob, 3, model.TaskPatch{Description: model.Some("hijacked")})
	assert.ErrorIs(t, err, repository.ErrForbidden)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTaskShares(t *testing.T) {
	t.Run("read share cannot update", func(t *testing.T) {
		p, mock, _ := newPlanner(t)
		expectGrants(mock, bob.Email, model.PlanShare{OwnerID: alice.ID, SharedWithEmail: bob.Email, Permission: model.PermissionRead})
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM atividades WHERE id = \?`).WithArgs(3).WillReturnRows(taskRows(aliceTask(3)))
		mock.ExpectRollback()

		_, err := p.UpdateTask(context.Background(), bob, 3, model.TaskPatch{Status: model.Some(model.StatusDone)})
		assert.ErrorIs(t, err, repository.ErrForbidden)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("edit share updates only present fields", func(t *testing.T) {
		p, mock, _ := newPlanner(t)
		expectGrants(mock, bob.Email, model.PlanShare{OwnerID: alice.ID, SharedWithEmail: bob.Email, Permission: model.PermissionEdit})
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM atividades WHERE id = \?`).WithArgs(3).WillReturnRows(taskRows(aliceTask(3)))
		mock.ExpectExec(`UPDATE atividades SET como = \?, status = \? WHERE id = \?`).
			WithArgs("", "Feito", 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		done := aliceTask(3)
		done.Status = model.StatusDone
		mock.ExpectQuery(`SELECT .* FROM atividades WHERE id = \?`).WithArgs(3).WillReturnRows(taskRows(done))
		mock.ExpectCommit()

		patch := model.TaskPatch{Status: model.Some(model.StatusDone)}
		patch.How = model.Some("")
		got, err := p.UpdateTask(context.Background(), bob, 3, patch)
		require.NoError(t, err)
		assert.Equal(t, model.StatusDone, got.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("edit share cannot delete", func(t *testing.T) {
		p, mock, _ := newPlanner(t)
		expectGrants(mock, bob.Email, model.PlanShare{OwnerID: alice.ID, SharedWithEmail: bob.Email, Permission: model.PermissionEdit})
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM atividades WHERE id = \?`).WithArgs(3).WillReturnRows(taskRows(aliceTask(3)))
		mock.ExpectRollback()

		err := p.DeleteTask(context.Background(), bob, 3)
		assert.ErrorIs(t, err, repository.ErrForbidden)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateTaskRejectsNullDate(t *testing.T) {
	p, mock, _ := newPlanner(t)
	_, err := p.UpdateTask(context.Background(), alice, 3, model.TaskPatch{Date: model.Optional[model.Date]{Set: true, Null: true}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "data", ve.Field)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTaskNotFound(t *testing.T) {
	p, mock, _ := newPlanner(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM atividades WHERE id = \?`).WithArgs(40).WillReturnRows(sqlmock.NewRows(taskCols))
	mock.ExpectRollback()

	err := p.DeleteTask(context.Background(), admin, 40)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTaskRecurring(t *testing.T) {
	p, mock, _ := newPlanner(t)
	start, end := model.NewDate(2026, 1, 5), model.NewDate(2026, 1, 18)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO atividades .* VALUES (\(.*\),){5}\(.*\)$`).
		WillReturnResult(sqlmock.NewResult(1, 6))
	mock.ExpectCommit()

	res, err := p.CreateTask(context.Background(), alice, model.TaskFields{
		Details: model.Details{What: "Gym"},
		Recurrence: model.Recurrence{
			Type:     model.RecurrenceWeekdays,
			Weekdays: model.Weekdays{0, 2, 4},
			Start:    &start,
			End:      &end,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Count)
	assert.Equal(t, "series-1", res.SeriesID)
	assert.Nil(t, res.Task)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTaskRecurringEmpty(t *testing.T) {
	p, mock, _ := newPlanner(t)
	start, end := model.NewDate(2026, 2, 1), model.NewDate(2026, 2, 28)

	_, err := p.CreateTask(context.Background(), alice, model.TaskFields{
		Description: "Month end",
		Recurrence:  model.Recurrence{Type: model.RecurrenceDayOfMonth, DayOfMonth: 30, Start: &start, End: &end},
	})
	assert.ErrorIs(t, err, recurrence.ErrEmptyRecurrence)
	assert.True(t, IsClientError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTaskSingle(t *testing.T) {
	p, mock, _ := newPlanner(t)

	_, err := p.CreateTask(context.Background(), alice, model.TaskFields{Description: "no date"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO atividades`).WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery(`SELECT .* FROM atividades WHERE id = \?`).WithArgs(3).WillReturnRows(taskRows(aliceTask(3)))
	mock.ExpectCommit()

	res, err := p.CreateTask(context.Background(), alice, model.TaskFields{
		Date:                model.NewDate(2026, 1, 5),
		OriginalDescription: "Write chapter",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Task)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, uint64(3), res.Task.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateTaskResetsStatus(t *testing.T) {
	p, mock, _ := newPlanner(t)
	src := aliceTask(3)
	src.Status = model.StatusDone

	expectGrants(mock, bob.Email, model.PlanShare{OwnerID: alice.ID, SharedWithEmail: bob.Email})
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM atividades WHERE id = \?`).WithArgs(3).WillReturnRows(taskRows(src))
	mock.ExpectExec(`INSERT INTO atividades`).
		WithArgs(bob.ID, "Write chapter", sqlmock.AnyArg(), "A fazer", "Alta", "Tese",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(8, 1))
	copied := aliceTask(8)
	copied.OwnerID = bob.ID
	mock.ExpectQuery(`SELECT .* FROM atividades WHERE id = \?`).WithArgs(8).WillReturnRows(taskRows(copied))
	mock.ExpectCommit()

	got, err := p.DuplicateTask(context.Background(), bob, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), got.ID)
	assert.Equal(t, bob.ID, got.OwnerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTodayTasksSortedByUrgency(t *testing.T) {
	p, mock, _ := newPlanner(t)
	low, high, mid := aliceTask(1), aliceTask(2), aliceTask(3)
	low.Priority, high.Priority, mid.Priority = model.PriorityLow, model.PriorityHigh, model.PriorityMedium

	mock.ExpectQuery(`SELECT .* FROM atividades WHERE data = \? AND status <> \? ORDER BY id ASC`).
		WithArgs("2026-01-05", "Feito").
		WillReturnRows(taskRows(low, high, mid))

	tasks, err := p.TodayTasks(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []uint64{2, 3, 1}, []uint64{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertInsight(t *testing.T) {
	t.Run("commits task and status together", func(t *testing.T) {
		p, mock, _ := newPlanner(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM insights WHERE id = \?`).WithArgs(4).WillReturnRows(insightRow(4, alice.ID, "Ideia", nil))
		mock.ExpectExec(`INSERT INTO atividades`).
			WithArgs(alice.ID, "Apply for grant", "2026-01-05", "A fazer", "Média", "Funding",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectExec(`UPDATE insights SET status = \? WHERE id = \? AND status <> \?`).
			WithArgs("Convertido", 4, "Convertido").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT .* FROM atividades WHERE id = \?`).WithArgs(11).WillReturnRows(taskRows(aliceTask(11)))
		mock.ExpectCommit()

		task, err := p.ConvertInsight(context.Background(), admin, 4)
		require.NoError(t, err)
		assert.Equal(t, uint64(11), task.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure after task insert rolls back both", func(t *testing.T) {
		p, mock, _ := newPlanner(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM insights WHERE id = \?`).WithArgs(4).WillReturnRows(insightRow(4, alice.ID, "Ideia", "2026-03-01"))
		mock.ExpectExec(`INSERT INTO atividades`).WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectExec(`UPDATE insights SET status`).WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := p.ConvertInsight(context.Background(), admin, 4)
		var txErr *TxError
		require.ErrorAs(t, err, &txErr)
		assert.False(t, IsClientError(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already converted", func(t *testing.T) {
		p, mock, _ := newPlanner(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM insights WHERE id = \?`).WithArgs(4).WillReturnRows(insightRow(4, alice.ID, "Convertido", nil))
		mock.ExpectRollback()

		_, err := p.ConvertInsight(context.Background(), admin, 4)
		assert.ErrorIs(t, err, repository.ErrConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskFromInsight(t *testing.T) {
	planned := model.NewDate(2026, 3, 1)
	in := model.Insight{Description: "Idea", Category: "X", Priority: model.PriorityHigh, Details: model.Details{How: "fast"}}

	f := TaskFromInsight(in, model.NewDate(2026, 1, 5))
	assert.Equal(t, model.NewDate(2026, 1, 5), f.Date)
	assert.Equal(t, model.PriorityMedium, f.Priority)
	assert.Equal(t, model.StatusTodo, f.Status)
	assert.Equal(t, "fast", f.How)

	in.PlannedDate = &planned
	assert.Equal(t, planned, TaskFromInsight(in, model.NewDate(2026, 1, 5)).Date)
}

func TestUpdateInsightCannotRevertStatus(t *testing.T) {
	p, mock, _ := newPlanner(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM insights WHERE id = \?`).WithArgs(4).WillReturnRows(insightRow(4, alice.ID, "Convertido", nil))
	mock.ExpectRollback()

	_, err := p.UpdateInsight(context.Background(), admin, 4, model.InsightPatch{Status: model.Some(model.InsightIdea)})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "status", ve.Field)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSharePlan(t *testing.T) {
	p, mock, pub := newPlanner(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \?`).WithArgs(alice.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "created_at", "updated_at"}).
			AddRow(alice.ID, alice.Email, "x", "user", fixedNow, fixedNow))
	mock.ExpectExec(`INSERT INTO plan_shares .* ON DUPLICATE KEY UPDATE`).
		WithArgs(alice.ID, bob.Email, "edit").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(`SELECT .* FROM plan_shares WHERE owner_id = \? AND shared_with_email = \?`).
		WillReturnRows(sqlmock.NewRows(shareCols).AddRow(5, alice.ID, bob.Email, "edit", fixedNow))

	share, err := p.SharePlan(context.Background(), alice, "Bob@Example.com", model.PermissionEdit)
	require.NoError(t, err)
	assert.Equal(t, bob.Email, share.SharedWithEmail)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Eventually(t, func() bool { return len(pub.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	ev := pub.snapshot()[0]
	assert.Equal(t, queue.PlanSharedQueue, ev.queue)
	assert.Equal(t, "edit", ev.event.(queue.PlanSharedEvent).Permission)

	_, err = p.SharePlan(context.Background(), alice, "not-an-email", model.PermissionRead)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func workbook(t *testing.T, sheets map[string][][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(name, cell, &r))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestImportWorkbook(t *testing.T) {
	header := []any{"Data", "O que", "Status", "Prioridade", "Categoria"}
	row := []any{"05/01/2026", "Write", "ok", "Alta", "Tese"}

	t.Run("identical rows import once", func(t *testing.T) {
		p, mock, pub := newPlanner(t)
		r := workbook(t, map[string][][]any{
			"Plano Diário": {header, row, row, {"", "no date"}},
		})

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM atividades WHERE user_id = \?`).WithArgs(alice.ID).WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectExec(`INSERT INTO atividades .* VALUES \(.*\)$`).
			WithArgs(alice.ID, "Write", "2026-01-05", "Feito", "Alta", "Tese",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		report, err := p.ImportWorkbook(context.Background(), alice, r)
		require.NoError(t, err)
		assert.Equal(t, int64(1), report.Tasks.Imported)
		assert.Equal(t, 1, report.Tasks.Duplicates)
		assert.Len(t, report.Tasks.Skipped, 1)
		assert.Nil(t, report.Strategies)
		require.NoError(t, mock.ExpectationsWereMet())
		require.Eventually(t, func() bool { return len(pub.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	})

	t.Run("strategy failure rolls back tasks", func(t *testing.T) {
		p, mock, _ := newPlanner(t)
		r := workbook(t, map[string][][]any{
			"Plano Diário":   {header, row},
			"Temas Semanais": {{"Semana (início)", "Tema macro", "Ângulo Financeiro"}, {"05/01/2026", "Funding", "Budget"}},
		})

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM atividades WHERE user_id = \?`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO atividades`).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`DELETE FROM estrategia WHERE user_id = \?`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO estrategia`).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := p.ImportWorkbook(context.Background(), alice, r)
		var ie *ImportError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "Temas Semanais", ie.Sheet)
		var txErr *TxError
		assert.ErrorAs(t, err, &txErr)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing task sheet", func(t *testing.T) {
		p, mock, _ := newPlanner(t)
		r := workbook(t, map[string][][]any{"Other": {header, row}})

		_, err := p.ImportWorkbook(context.Background(), alice, r)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not a workbook", func(t *testing.T) {
		p, _, _ := newPlanner(t)
		_, err := p.ImportWorkbook(context.Background(), alice, bytes.NewReader([]byte("plain text")))
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestExportTasksOrderedByDate(t *testing.T) {
	p, mock, _ := newPlanner(t)
	late, early := aliceTask(1), aliceTask(2)
	late.Date = model.NewDate(2026, 2, 1)

	mock.ExpectQuery(`SELECT .* FROM atividades ORDER BY id DESC$`).WillReturnRows(taskRows(early, late))

	rows, err := p.ExportTasks(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, uint64(2), rows[0].ID)
	assert.Equal(t, "Write chapter", rows[0].Description)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDedupeTasksScopedToOwner(t *testing.T) {
	p, mock, _ := newPlanner(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE t1 FROM atividades t1 .* WHERE t1.user_id IN \(\?\)`).
		WithArgs(alice.ID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := p.DedupeTasks(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
