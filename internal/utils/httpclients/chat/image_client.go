package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"
)

const imageRequestTimeout = 120 * time.Second

// ImageClient generates images against an OpenAI-compatible images endpoint.
type ImageClient struct {
	client  *resty.Client
	baseURL string
	name    string
}

func NewImageClient(client *resty.Client, name, baseURL string) *ImageClient {
	return &ImageClient{
		client:  client,
		baseURL: normalizeBaseURL(baseURL),
		name:    name,
	}
}

// CreateImage requests a single base64-encoded image and returns the decoded
// bytes.
func (c *ImageClient) CreateImage(ctx context.Context, apiKey string, request openai.ImageRequest) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, imageRequestTimeout)
	defer cancel()

	request.N = 1
	request.ResponseFormat = openai.CreateImageResponseFormatB64JSON

	var respBody openai.ImageResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", apiKey)).
		SetBody(request).
		SetResult(&respBody).
		Post(c.endpoint("/images/generations"))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("image generation failed with status %d", resp.StatusCode()), nil, "")
	}
	if len(respBody.Data) == 0 || respBody.Data[0].B64JSON == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			"image generation returned no image data", nil, "")
	}

	decoded, err := base64.StdEncoding.DecodeString(respBody.Data[0].B64JSON)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to decode image payload")
	}
	return decoded, nil
}

func (c *ImageClient) endpoint(path string) string {
	if c.baseURL == "" {
		return path
	}
	return c.baseURL + path
}
