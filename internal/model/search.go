package model

// SearchResultKind тип найденного объекта
type SearchResultKind string

const (
	SearchResultChannel SearchResultKind = "channel"
	SearchResultGroup   SearchResultKind = "group"
	SearchResultUser    SearchResultKind = "user"
	SearchResultBot     SearchResultKind = "bot"
)

// SearchResult представляет один результат публичного поиска
type SearchResult struct {
	ID           int64
	Kind         SearchResultKind
	Title        string
	Username     string
	Participants int
}

// Link возвращает публичную ссылку, если у объекта есть username
func (r SearchResult) Link() string {
	if r.Username == "" {
		return ""
	}
	return "https://t.me/" + r.Username
}
