package domain

// Заголовки, которые API ожидает в каждом запросе после авторизации
const (
	HeaderCuid        = "Ota-Cuid"
	HeaderLoaded      = "Ota-Loaded"
	HeaderToken       = "Ota-Token"
	HeaderContentType = "Content-Type"
)

// Session хранит учетные данные, полученные от user/get.
// Создаётся один раз за запуск и никогда не обновляется
type Session struct {
	ClientID string
	LoadedAt string // время выдачи токена в строковом виде, как его вернул сервер
	Token    string
}

// Headers возвращает набор заголовков для запросов к api/search.
// Для nil-сессии (авторизация не удалась) набор пустой
func (s *Session) Headers() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	return map[string]string{
		HeaderCuid:        s.ClientID,
		HeaderLoaded:      s.LoadedAt,
		HeaderToken:       s.Token,
		HeaderContentType: "application/json",
	}
}
