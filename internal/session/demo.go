package session

import (
	"encoding/json"

	"standupboard/internal/domain"
)

const demoPhotoURL = "https://telegram.org/img/t_logo.png"

// DemoSession is the placeholder identity used outside of production.
func DemoSession() domain.Session {
	identity := domain.Identity{
		ID:        1,
		FirstName: "Demo",
		Username:  "demo",
		PhotoURL:  demoPhotoURL,
	}

	payload, _ := json.Marshal(identity) //nolint:errchkjson // Plain struct always marshals.

	return domain.Session{
		Identity: identity,
		Payload:  payload,
		Demo:     true,
	}
}
