package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hkuds/vikingbot/internal/config"
)

// GenerateImageTool creates, edits, or varies images through the OpenAI
// Images API. Failures come back as readable strings so the model can
// adjust its request instead of aborting the loop.
type GenerateImageTool struct {
	BaseTool
	client    *openai.Client
	cfg       config.ImageToolConfig
	workspace string
}

// NewGenerateImageTool creates a generate_image tool. base_image and mask
// paths are resolved inside the session workspace.
func NewGenerateImageTool(client *openai.Client, cfg config.ImageToolConfig, workspace string) *GenerateImageTool {
	if cfg.Model == "" {
		cfg.Model = "gpt-image-1"
	}
	if cfg.Size == "" {
		cfg.Size = "1024x1024"
	}

	return &GenerateImageTool{
		BaseTool: NewBaseTool(
			"generate_image",
			"Generate, edit, or create variations of images. Returns a data URI with the image content.",
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mode": map[string]interface{}{
						"type":        "string",
						"description": "Operation to perform",
						"enum":        []string{"generate", "edit", "variation"},
					},
					"prompt": map[string]interface{}{
						"type":        "string",
						"description": "Image description (required for generate and edit)",
					},
					"base_image": map[string]interface{}{
						"type":        "string",
						"description": "Workspace path of the source image (required for edit and variation)",
					},
					"mask": map[string]interface{}{
						"type":        "string",
						"description": "Workspace path of a mask image whose transparent areas mark the edit region",
					},
					"size": map[string]interface{}{
						"type":        "string",
						"description": "Image dimensions, e.g. 1024x1024",
					},
				},
				"required": []string{"mode"},
			},
		),
		client:    client,
		cfg:       cfg,
		workspace: workspace,
	}
}

func (t *GenerateImageTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	mode := GetStringParamOr(params, "mode", "generate")
	size := GetStringParamOr(params, "size", t.cfg.Size)

	var (
		b64 string
		err error
	)
	switch mode {
	case "generate":
		b64, err = t.generate(ctx, params, size)
	case "edit":
		b64, err = t.edit(ctx, params, size)
	case "variation":
		b64, err = t.variation(ctx, params, size)
	default:
		return fmt.Sprintf("Error: unknown mode %q (use generate, edit, or variation)", mode), nil
	}
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	return "data:image/png;base64," + b64, nil
}

func (t *GenerateImageTool) generate(ctx context.Context, params map[string]interface{}, size string) (string, error) {
	prompt, err := GetStringParam(params, "prompt")
	if err != nil {
		return "", fmt.Errorf("generate mode requires a prompt")
	}

	resp, err := t.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          t.cfg.Model,
		Size:           size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return "", fmt.Errorf("image generation failed: %w", err)
	}
	return firstImage(resp)
}

func (t *GenerateImageTool) edit(ctx context.Context, params map[string]interface{}, size string) (string, error) {
	prompt, err := GetStringParam(params, "prompt")
	if err != nil {
		return "", fmt.Errorf("edit mode requires a prompt")
	}
	img, err := t.openWorkspaceImage(params, "base_image")
	if err != nil {
		return "", err
	}
	defer img.Close()

	req := openai.ImageEditRequest{
		Image:          img,
		Prompt:         prompt,
		Model:          t.cfg.Model,
		Size:           size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	}
	if maskPath := GetStringParamOr(params, "mask", ""); maskPath != "" {
		mask, err := t.openWorkspaceImage(params, "mask")
		if err != nil {
			return "", err
		}
		defer mask.Close()
		req.Mask = mask
	}

	resp, err := t.client.CreateEditImage(ctx, req)
	if err != nil {
		return "", fmt.Errorf("image edit failed: %w", err)
	}
	return firstImage(resp)
}

func (t *GenerateImageTool) variation(ctx context.Context, params map[string]interface{}, size string) (string, error) {
	img, err := t.openWorkspaceImage(params, "base_image")
	if err != nil {
		return "", err
	}
	defer img.Close()

	resp, err := t.client.CreateVariImage(ctx, openai.ImageVariRequest{
		Image:          img,
		Model:          t.cfg.Model,
		Size:           size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return "", fmt.Errorf("image variation failed: %w", err)
	}
	return firstImage(resp)
}

// openWorkspaceImage opens an image referenced by a path parameter,
// confined to the workspace.
func (t *GenerateImageTool) openWorkspaceImage(params map[string]interface{}, key string) (*os.File, error) {
	path, err := GetStringParam(params, key)
	if err != nil {
		return nil, fmt.Errorf("%s is required for this mode", key)
	}
	abs, err := resolveWorkspacePath(t.workspace, path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	return f, nil
}

// firstImage extracts the first image from a response as base64,
// validating that the payload really is base64-encoded.
func firstImage(resp openai.ImageResponse) (string, error) {
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("provider returned no images")
	}
	b64 := resp.Data[0].B64JSON
	if _, err := base64.StdEncoding.DecodeString(b64); err != nil {
		return "", fmt.Errorf("provider returned malformed image data: %w", err)
	}
	return b64, nil
}
