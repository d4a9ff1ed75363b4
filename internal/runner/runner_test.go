package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/loykin/sqlapply/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCursor struct {
	mock.Mock
}

func (m *MockCursor) Exec(ctx context.Context, statement string) error {
	args := m.Called(ctx, statement)
	return args.Error(0)
}

func (m *MockCursor) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockConn struct {
	mock.Mock
}

func (m *MockConn) Cursor(ctx context.Context) (Cursor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Cursor), args.Error(1)
}

func (m *MockConn) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

func dialerFor(conn Conn) Dialer {
	return DialFunc(func(context.Context) (Conn, error) { return conn, nil })
}

func statements(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("INSERT INTO t VALUES (%d)", i+1)
	}
	return out
}

func TestRun_Success(t *testing.T) {
	cur := new(MockCursor)
	conn := new(MockConn)
	stmts := statements(3)

	conn.On("Cursor", mock.Anything).Return(cur, nil).Once()
	var order []string
	for _, s := range stmts {
		s := s
		cur.On("Exec", mock.Anything, s).Run(func(mock.Arguments) { order = append(order, s) }).Return(nil).Once()
	}
	cur.On("Close").Return(nil).Once()
	conn.On("Commit").Return(nil).Once()
	conn.On("Close").Return(nil).Once()

	res, err := New(dialerFor(conn), common.Discard()).Run(context.Background(), stmts)

	require.NoError(t, err)
	assert.Equal(t, 3, res.Executed)
	assert.Equal(t, stmts, order, "statements must run in file order")
	cur.AssertExpectations(t)
	conn.AssertExpectations(t)
}

func TestRun_FailureOnStatementK(t *testing.T) {
	const n = 5
	for k := 1; k <= n; k++ {
		t.Run(fmt.Sprintf("fail_at_%d", k), func(t *testing.T) {
			cur := new(MockCursor)
			conn := new(MockConn)
			stmts := statements(n)
			dbErr := errors.New("Table 'clinic.patients' doesn't exist")

			conn.On("Cursor", mock.Anything).Return(cur, nil)
			for i, s := range stmts {
				if i+1 == k {
					cur.On("Exec", mock.Anything, s).Return(dbErr)
				} else {
					cur.On("Exec", mock.Anything, s).Return(nil)
				}
			}
			cur.On("Close").Return(nil)
			conn.On("Commit").Return(nil)
			conn.On("Close").Return(nil)

			res, err := New(dialerFor(conn), common.Discard()).Run(context.Background(), stmts)

			require.Error(t, err)
			assert.ErrorIs(t, err, dbErr)
			var se *StatementError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, k, se.Index)
			assert.Equal(t, stmts[k-1], se.Statement)
			assert.Equal(t, k-1, res.Executed)

			cur.AssertNumberOfCalls(t, "Exec", k)
			conn.AssertNotCalled(t, "Commit")
			cur.AssertNumberOfCalls(t, "Close", 1)
			conn.AssertNumberOfCalls(t, "Close", 1)
		})
	}
}

func TestRun_CursorClosedBeforeConnection(t *testing.T) {
	cur := new(MockCursor)
	conn := new(MockConn)
	var closed []string

	conn.On("Cursor", mock.Anything).Return(cur, nil)
	cur.On("Exec", mock.Anything, mock.Anything).Return(errors.New("syntax error"))
	cur.On("Close").Run(func(mock.Arguments) { closed = append(closed, "cursor") }).Return(nil)
	conn.On("Close").Run(func(mock.Arguments) { closed = append(closed, "connection") }).Return(nil)

	_, err := New(dialerFor(conn), common.Discard()).Run(context.Background(), statements(2))

	require.Error(t, err)
	assert.Equal(t, []string{"cursor", "connection"}, closed)
}

func TestRun_DialFailure(t *testing.T) {
	dialErr := errors.New("Access denied for user 'app'@'10.0.0.2'")
	d := DialFunc(func(context.Context) (Conn, error) { return nil, dialErr })

	_, err := New(d, common.Discard()).Run(context.Background(), statements(2))

	require.Error(t, err)
	assert.ErrorIs(t, err, dialErr)
	var se *StatementError
	assert.False(t, errors.As(err, &se), "dial failure is not a statement failure")
}

func TestRun_CursorFailureClosesConnection(t *testing.T) {
	conn := new(MockConn)
	conn.On("Cursor", mock.Anything).Return(nil, errors.New("connection reset"))
	conn.On("Close").Return(nil).Once()

	_, err := New(dialerFor(conn), common.Discard()).Run(context.Background(), statements(1))

	require.Error(t, err)
	conn.AssertNotCalled(t, "Commit")
	conn.AssertExpectations(t)
}

func TestRun_CommitFailure(t *testing.T) {
	cur := new(MockCursor)
	conn := new(MockConn)
	commitErr := errors.New("deadlock found")

	conn.On("Cursor", mock.Anything).Return(cur, nil)
	cur.On("Exec", mock.Anything, mock.Anything).Return(nil)
	cur.On("Close").Return(nil)
	conn.On("Commit").Return(commitErr).Once()
	conn.On("Close").Return(nil).Once()

	_, err := New(dialerFor(conn), common.Discard()).Run(context.Background(), statements(2))

	assert.ErrorIs(t, err, commitErr)
	cur.AssertNumberOfCalls(t, "Close", 1)
	conn.AssertExpectations(t)
}

func TestRun_CloseErrorReportedOnlyWithoutEarlierError(t *testing.T) {
	closeErr := errors.New("bad connection")

	cur := new(MockCursor)
	conn := new(MockConn)
	conn.On("Cursor", mock.Anything).Return(cur, nil)
	cur.On("Exec", mock.Anything, mock.Anything).Return(nil)
	cur.On("Close").Return(nil)
	conn.On("Commit").Return(nil)
	conn.On("Close").Return(closeErr)

	_, err := New(dialerFor(conn), common.Discard()).Run(context.Background(), statements(1))
	assert.ErrorIs(t, err, closeErr)

	execErr := errors.New("duplicate column name")
	cur2 := new(MockCursor)
	conn2 := new(MockConn)
	conn2.On("Cursor", mock.Anything).Return(cur2, nil)
	cur2.On("Exec", mock.Anything, mock.Anything).Return(execErr)
	cur2.On("Close").Return(nil)
	conn2.On("Close").Return(closeErr)

	_, err = New(dialerFor(conn2), common.Discard()).Run(context.Background(), statements(1))
	assert.ErrorIs(t, err, execErr)
	assert.NotErrorIs(t, err, closeErr)
}

func TestRun_EmptyMigrationStillCommits(t *testing.T) {
	cur := new(MockCursor)
	conn := new(MockConn)
	conn.On("Cursor", mock.Anything).Return(cur, nil)
	cur.On("Close").Return(nil).Once()
	conn.On("Commit").Return(nil).Once()
	conn.On("Close").Return(nil).Once()

	res, err := New(dialerFor(conn), common.Discard()).Run(context.Background(), nil)

	require.NoError(t, err)
	assert.Zero(t, res.Executed)
	cur.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything)
	conn.AssertExpectations(t)
}
