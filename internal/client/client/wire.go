package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"path"

	"github.com/dmitrijs2005/picdrop/internal/client/models"
	"github.com/dmitrijs2005/picdrop/internal/timex"
)

type registerRequest struct {
	Username string `json:"username"`
}

type registerResponse struct {
	TempPassword string `json:"tempPassword"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		Username           string `json:"username"`
		MustChangePassword bool   `json:"must_change_password"`
	} `json:"user"`
}

type changePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

type sendResponse struct {
	Receiver  string          `json:"receiver"`
	ExpiresAt timex.Timestamp `json:"expiresAt"`
	ShareLink string          `json:"shareLink,omitempty"`
}

type sentItem struct {
	ToUsername   string          `json:"to_username"`
	OriginalName string          `json:"original_name"`
	ExpiresAt    timex.Timestamp `json:"expires_at"`
	FileURL      string          `json:"fileUrl"`
}

type receivedItem struct {
	OriginalName string          `json:"original_name"`
	ExpiresAt    timex.Timestamp `json:"expires_at"`
	FileURL      string          `json:"fileUrl"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// receivedListing decodes the sender-keyed object keeping the server's key
// order, which a Go map would lose.
type receivedListing []models.ReceivedGroup

func (r *receivedListing) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("received listing: expected object, got %v", tok)
	}

	var out receivedListing
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		sender, ok := tok.(string)
		if !ok {
			return fmt.Errorf("received listing: unexpected key %v", tok)
		}

		var items []receivedItem
		if err := dec.Decode(&items); err != nil {
			return fmt.Errorf("received listing[%s]: %w", sender, err)
		}

		g := models.ReceivedGroup{Sender: sender, Items: make([]models.MediaItem, 0, len(items))}
		for _, it := range items {
			g.Items = append(g.Items, models.MediaItem{
				RemoteID:     remoteID(it.FileURL),
				Counterpart:  sender,
				OriginalName: it.OriginalName,
				ExpiresAt:    it.ExpiresAt.Time,
				FetchPath:    it.FileURL,
			})
		}
		out = append(out, g)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

func (s sentItem) toModel() models.MediaItem {
	return models.MediaItem{
		RemoteID:     remoteID(s.FileURL),
		Counterpart:  s.ToUsername,
		OriginalName: s.OriginalName,
		ExpiresAt:    s.ExpiresAt.Time,
		FetchPath:    s.FileURL,
	}
}

// remoteID is the last path segment of a file reference.
func remoteID(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.Path
	}
	if p == "" {
		return ""
	}
	return path.Base(p)
}
