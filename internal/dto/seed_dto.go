package dto

// SeedDefinitionsResponse summarises a definition seeding run.
type SeedDefinitionsResponse struct {
	Definitions int `json:"definitions"`
	Users       int `json:"users"`
	Items       int `json:"items"`
}
