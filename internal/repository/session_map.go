package repo

// SessionMapStorage — in-memory хранилище сессий для локального
// запуска и тестов.
type SessionMapStorage struct {
	sessions map[string]string
}

func NewSessionMapStorage() *SessionMapStorage {
	return &SessionMapStorage{
		sessions: make(map[string]string),
	}
}

func (u SessionMapStorage) GetUserIdBySession(sessionID string) (string, bool) {
	if v, ok := u.sessions[sessionID]; ok {
		return v, true
	}
	return "", false
}

func (u SessionMapStorage) StoreSession(sessionID string, userID string) {
	u.sessions[sessionID] = userID
}

func (u SessionMapStorage) DeleteSession(sessionID string) (ok bool) {
	_, found := u.sessions[sessionID]
	if !found {
		return false
	}
	delete(u.sessions, sessionID)
	return true
}
