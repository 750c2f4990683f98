package generation

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/logoforge/logoforge/internal/app/domain/icon"
)

// ErrNoDisplayableImage is returned when none of the normalization
// strategies yields a URL.
var ErrNoDisplayableImage = errors.New("provider response carries no displayable image")

// urlFieldNames are the response fields worth probing when the provider
// returns an unrecognized payload shape.
var urlFieldNames = map[string]bool{
	"url":       true,
	"image_url": true,
	"src":       true,
	"href":      true,
	"link":      true,
}

// NormalizeImage converts one provider image into a displayable URL. Three
// strategies apply in order: inline bytes become a data URL, a direct URL is
// used verbatim, and as a last resort the raw payload is scanned for any
// string field with a URL-ish name starting with "http".
func NormalizeImage(img icon.ProviderImage) (string, error) {
	if len(img.Data) > 0 {
		mime := img.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
	}

	if img.URL != "" {
		return img.URL, nil
	}

	if len(img.Raw) > 0 {
		if url := scanForURL(gjson.ParseBytes(img.Raw)); url != "" {
			return url, nil
		}
	}

	return "", ErrNoDisplayableImage
}

// scanForURL walks the payload depth-first and returns the first string
// value under a URL-ish key.
func scanForURL(value gjson.Result) string {
	var found string
	value.ForEach(func(key, child gjson.Result) bool {
		if child.Type == gjson.String && urlFieldNames[key.String()] && strings.HasPrefix(child.String(), "http") {
			found = child.String()
			return false
		}
		if child.IsObject() || child.IsArray() {
			if url := scanForURL(child); url != "" {
				found = url
				return false
			}
		}
		return true
	})
	return found
}
