package state

import (
	"sync"
	"testing"

	"github.com/arloliu/go-fsmsock/logger"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeRemover struct {
	mu      sync.Mutex
	removed []int
}

func (r *fakeRemover) RemoveClient(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
}

type fakeConn struct {
	id      int
	running bool
	state   State
	remover Remover
	logger  logger.Logger
}

func (c *fakeConn) ID() int                  { return c.id }
func (c *fakeConn) Receive() ([]byte, error) { return nil, nil }
func (c *fakeConn) Send([]byte) error        { return nil }
func (c *fakeConn) Message() []byte          { return nil }
func (c *fakeConn) SetState(s State)         { c.state = s }
func (c *fakeConn) Stop()                    { c.running = false }
func (c *fakeConn) IsRunning() bool          { return c.running }
func (c *fakeConn) Remover() Remover         { return c.remover }
func (c *fakeConn) Logger() logger.Logger    { return c.logger }

func TestExit(t *testing.T) {
	require := require.New(t)

	mockLogger := logger.NewMockLogger()
	mockLogger.On("Debug", "exit state", mock.Anything).Once()

	remover := &fakeRemover{}
	conn := &fakeConn{id: 7, running: true, remover: remover, logger: mockLogger}

	require.Equal(Stop, Exit.Handle(conn))
	require.False(conn.IsRunning())
	require.Equal([]int{7}, remover.removed)
	mockLogger.AssertExpectations(t)
}

func TestExit_NilRemover(t *testing.T) {
	conn := &fakeConn{id: 1, running: true, logger: logger.NewNop()}

	require.Equal(t, Stop, Exit.Handle(conn))
	require.False(t, conn.IsRunning())
}

func TestStateFunc(t *testing.T) {
	require := require.New(t)

	conn := &fakeConn{running: true, logger: logger.NewNop()}
	calls := 0
	var s State = StateFunc(func(c Conn) Result {
		calls++
		c.SetState(Exit)
		return Continue
	})

	require.Equal(Continue, s.Handle(conn))
	require.Equal(1, calls)
	require.Equal(Exit, conn.state)
}

func TestResult_String(t *testing.T) {
	require.Equal(t, "continue", Continue.String())
	require.Equal(t, "stop", Stop.String())
	require.Equal(t, "unknown", Result(9).String())
}

func TestRegistry(t *testing.T) {
	require := require.New(t)

	r := NewRegistry()

	s, err := r.Resolve(ExitName)
	require.NoError(err)
	require.Equal(Exit, s)

	_, err = r.Resolve("Login")
	require.ErrorIs(err, ErrStateNotFound)

	login := StateFunc(func(Conn) Result { return Stop })
	require.NoError(r.Register("Login", func() State { return login }))
	require.ErrorIs(r.Register("Login", func() State { return login }), ErrStateExists)
	require.ErrorIs(r.Register("", func() State { return login }), ErrInvalidState)
	require.ErrorIs(r.Register("Nil", nil), ErrInvalidState)

	s, err = r.Resolve("Login")
	require.NoError(err)
	require.NotNil(s)

	require.NoError(r.Register("Broken", func() State { return nil }))
	_, err = r.Resolve("Broken")
	require.ErrorIs(err, ErrInvalidState)

	require.Equal([]string{"Broken", "Exit", "Login"}, r.Names())

	require.Panics(func() { r.MustRegister("Login", func() State { return login }) })
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_ = r.Register("s", func() State { return Exit })
			}
			_, _ = r.Resolve(ExitName)
		}()
	}
	wg.Wait()

	s, err := r.Resolve("s")
	require.NoError(t, err)
	require.Equal(t, Exit, s)
}
