package types

// Location is one autocomplete result.
type Location struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	County string `json:"county"`
	Full   string `json:"full"`
}

type County struct {
	Name   string   `json:"name"`
	Cities []string `json:"cities"`
}
