package state

// Exit is the terminal State. It stops the connection loop and asks the owner to remove
// the connection, which tears down its socket.
var Exit State = exitState{}

type exitState struct{}

func (exitState) Handle(conn Conn) Result {
	conn.Logger().Debug("exit state", "conn_id", conn.ID())

	conn.Stop()
	if remover := conn.Remover(); remover != nil {
		remover.RemoveClient(conn.ID())
	}

	return Stop
}
