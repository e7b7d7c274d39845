package domain

// SubjectType identifies which kind of principal an issued token belongs to.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "USER"
	SubjectTypeAgent SubjectType = "AGENT"
)
