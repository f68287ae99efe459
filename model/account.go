package model

type Account struct {
	Id           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	Lang         string `json:"lang"`
}
