package identity

import (
	"encoding/base64"
	"encoding/json"
)

// FixedToken is a User identity for local development, equivalent to
// org123/1234567890 with internal and org admin flags set.
const FixedToken = "eyJpZGVudGl0eSI6eyJhY2NvdW50X251bWJlciI6ImFjY291bnQxMjMiLCJvcmdfaWQiOiJvcmcxMjMiLCJ0eXBlIjoiVXNlciIsInVzZXIiOnsiaXNfb3JnX2FkbWluIjp0cnVlLCJpc19pbnRlcm5hbCI6dHJ1ZSwidXNlcl9pZCI6IjEyMzQ1Njc4OTAiLCJ1c2VybmFtZSI6ImFzdHJvIn0sImludGVybmFsIjp7Im9yZ19pZCI6Im9yZzEyMyJ9fX0="

// Encode produces a token for id. Used by tests and local tooling.
func Encode(id *Identity) (string, error) {
	raw, err := json.Marshal(envelope{Identity: id})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
