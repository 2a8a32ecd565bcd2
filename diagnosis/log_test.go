package diagnosis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/hmdraft/docmodel"
	"github.com/teranos/hmdraft/draft"
	"github.com/teranos/hmdraft/errors"
	hmtest "github.com/teranos/hmdraft/internal/testing"
)

var _ draft.Diagnosis = (*Log)(nil)

func TestLog_AppendAndComplete(t *testing.T) {
	database := hmtest.CreateTestDB(t)
	l := New(database, Options{Logger: zaptest.NewLogger(t).Sugar()})

	changes := []docmodel.DocumentChange{docmodel.NewSetTitle("Hello")}
	l.Append("doc-1", "getDraft", map[string]string{"id": "doc-1"})
	l.Append("doc-1", "will.updateDraft", changes)
	l.Append("doc-2", "getDraft", "doc-2")
	l.Complete("doc-1", "did.updateDraft", errors.New("conflict"))
	require.NoError(t, l.Close())

	entries, err := l.Entries(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "getDraft", entries[0].Key)
	assert.JSONEq(t, `{"id":"doc-1"}`, string(entries[0].Value))

	var decoded []docmodel.DocumentChange
	require.NoError(t, json.Unmarshal(entries[1].Value, &decoded))
	assert.Equal(t, changes, decoded)

	assert.Equal(t, "did.updateDraft", entries[2].Key)
	assert.JSONEq(t, `"conflict"`, string(entries[2].Value))

	for _, e := range entries {
		assert.Equal(t, OutcomeComplete, e.Outcome, e.Key)
		assert.NotNil(t, e.CompletedAt, e.Key)
	}

	other, err := l.Entries(context.Background(), "doc-2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, OutcomePending, other[0].Outcome)
	assert.Nil(t, other[0].CompletedAt)
}

func TestLog_RateLimitDrops(t *testing.T) {
	database := hmtest.CreateTestDB(t)
	l := New(database, Options{MaxPerSecond: 1})

	for i := 0; i < 5; i++ {
		l.Append("doc-1", "will.updateDraft", i)
	}
	require.NoError(t, l.Close())

	entries, err := l.Entries(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int64(4), l.Dropped())
}

func TestLog_ClosedIgnoresEntries(t *testing.T) {
	database := hmtest.CreateTestDB(t)
	l := New(database, Options{})
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	l.Append("doc-1", "getDraft", nil)
	l.Complete("doc-1", "did.updateDraft", nil)

	entries, err := l.Entries(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, l.Dropped())
}

func TestLog_WriteErrorIsLogged_Sqlmock(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	l := New(database, Options{Logger: zap.New(core).Sugar()})

	mock.ExpectExec(`INSERT INTO draft_log`).
		WithArgs("doc-1", "getDraft", `"doc-1"`, OutcomePending, sqlmock.AnyArg(), nil).
		WillReturnError(errors.New("disk full"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE draft_log SET outcome`).
		WithArgs(OutcomeComplete, sqlmock.AnyArg(), "doc-1", OutcomePending).
		WillReturnError(errors.New("database is closed"))
	mock.ExpectRollback()

	l.Append("doc-1", "getDraft", "doc-1")
	l.Complete("doc-1", "did.updateDraft", "ok")
	require.NoError(t, l.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, logs.FilterMessage("Failed to write diagnosis entry").Len())
	assert.Equal(t, 1, logs.FilterMessage("Diagnosis entry lost, database closed").Len())
}
