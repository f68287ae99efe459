package model

type Profile struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	AccountId string `json:"accountId"`
	SkinHash  string `json:"skinHash"`
	CapeHash  string `json:"capeHash"`
	IsSlim    bool   `json:"isSlim"`
}
