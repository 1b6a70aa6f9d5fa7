package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-resty/resty/v2"
)

// maxImportSize caps dictionary files accepted by /dict import.
const maxImportSize = 1 << 20

var errNotJSON = errors.New("attachment must be a .json file")

var attachmentClient = resty.New().SetTimeout(30 * time.Second)

// IsJSON reports whether filename has a .json extension.
func IsJSON(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}

// FirstAttachment extracts the first attachment from an interaction's resolved
// data. Returns nil if no attachments are present or the interaction is not
// an application command.
func FirstAttachment(i *discordgo.InteractionCreate) *discordgo.MessageAttachment {
	if i.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	data := i.ApplicationCommandData()
	if data.Resolved == nil || len(data.Resolved.Attachments) == 0 {
		return nil
	}
	for _, a := range data.Resolved.Attachments {
		return a
	}
	return nil
}

// ReadJSONAttachment downloads a JSON attachment of at most maxImportSize
// bytes.
func ReadJSONAttachment(ctx context.Context, a *discordgo.MessageAttachment) ([]byte, error) {
	if a == nil {
		return nil, errors.New("attachment is nil")
	}
	if !IsJSON(a.Filename) {
		return nil, errNotJSON
	}
	if a.Size > maxImportSize {
		return nil, fmt.Errorf("attachment is %d bytes, limit is %d", a.Size, maxImportSize)
	}

	res, err := attachmentClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(a.URL)
	if err != nil {
		return nil, fmt.Errorf("download attachment: %w", err)
	}
	body := res.RawBody()
	defer body.Close()
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("download attachment: status code: %d", res.StatusCode())
	}

	data, err := io.ReadAll(io.LimitReader(body, maxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	if len(data) > maxImportSize {
		return nil, fmt.Errorf("attachment exceeds %d bytes", maxImportSize)
	}
	return data, nil
}
