// Package pinning uploads token logos to the Pinata pinning service. The
// minter treats every call as best effort; a failed pin never blocks a mint.
package pinning

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"

	"github.com/carlmjohnson/requests"

	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

const pinFileURL = "https://api.pinata.cloud/pinning/pinFileToIPFS"

type Pinata struct {
	logger  *logger.Logger
	jwt     string
	gateway string
}

func NewPinata(jwt, gateway string, logger *logger.Logger) *Pinata {
	return &Pinata{logger: logger, jwt: jwt, gateway: gateway}
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinFromURL downloads the content at sourceURL and pins it under the given name.
func (p *Pinata) PinFromURL(ctx context.Context, sourceURL, name string) (*models.PinResult, error) {
	if p.jwt == "" {
		return nil, fmt.Errorf("PINATA_JWT is missing: %w", models.ErrUnconfigured)
	}

	var content bytes.Buffer
	if err := requests.URL(sourceURL).ToBytesBuffer(&content).Fetch(ctx); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", sourceURL, err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(content.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.WriteField("pinataMetadata", fmt.Sprintf(`{"name":%q}`, name)); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.WriteField("pinataOptions", `{"cidVersion":0}`); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	var resp pinResponse
	err = requests.URL(pinFileURL).
		Header("Authorization", "Bearer "+p.jwt).
		ContentType(form.FormDataContentType()).
		BodyBytes(body.Bytes()).
		ToJSON(&resp).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pin %s: %w", name, err)
	}

	p.logger.Debug("Pinned file ", "name ", name, " hash ", resp.IpfsHash)
	return &models.PinResult{
		ContentHash: resp.IpfsHash,
		URL:         fmt.Sprintf("%s/%s", p.gateway, resp.IpfsHash),
	}, nil
}
