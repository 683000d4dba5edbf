package models

import "net/http"

// ProblemTypeBase prefixes the "type" URI of every problem response.
const ProblemTypeBase = "https://ponplan.dev/problems/"

// APIProblem is an RFC 7807 Problem Details body.
type APIProblem struct {
	Type     string `json:"type" example:"https://ponplan.dev/problems/bad-request"`
	Title    string `json:"title" example:"Bad Request"`
	Status   int    `json:"status" example:"400"`
	Detail   string `json:"detail,omitempty" example:"subscriber_count must be positive"`
	Instance string `json:"instance,omitempty" example:"/api/v1/planner/plan"`
}

// NewProblem builds a problem for an HTTP status, deriving type and title
// from the status text ("Not Found" -> ".../not-found").
func NewProblem(status int, detail, instance string) APIProblem {
	title := http.StatusText(status)
	slug := make([]byte, 0, len(title))
	for i := 0; i < len(title); i++ {
		c := title[i]
		switch {
		case c >= 'A' && c <= 'Z':
			slug = append(slug, c+'a'-'A')
		case c == ' ':
			slug = append(slug, '-')
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
			slug = append(slug, c)
		}
	}
	return APIProblem{
		Type:     ProblemTypeBase + string(slug),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}
