package gcs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dvloznov/ledger-bot/internal/logger"
)

// LoadCredentials returns service account JSON. Inline JSON wins; otherwise
// source is read from a gs:// URI through fetcher or from the local disk.
// Both empty yields nil, meaning Application Default Credentials.
func LoadCredentials(ctx context.Context, inline, source string, fetcher ObjectFetcher) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case inline != "":
		data = []byte(inline)
	case source == "":
		return nil, nil
	case IsURI(source):
		if fetcher == nil {
			return nil, fmt.Errorf("LoadCredentials: no storage client for %s", Filename(source))
		}
		data, err = fetcher.FetchObject(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("LoadCredentials: %w", err)
		}
	default:
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("LoadCredentials: reading file: %w", err)
		}
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("LoadCredentials: credentials are not valid JSON")
	}

	log := logger.FromContext(ctx)
	log.Debug().Bool("inline", inline != "").Str("file", Filename(source)).Msg("Loaded credentials")
	return data, nil
}
