package scanning

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIConfig configures the google.golang.org/genai backed completer
type GenAIConfig struct {
	APIKey   string
	Model    string
	Project  string // Vertex AI project; when set the Vertex backend is used
	Location string
	// ImageByURI sends the uploaded image's URL instead of its bytes.
	// Only useful when the model can fetch the URL (gs:// buckets on Vertex AI).
	ImageByURI bool
}

// GenAI implements the Completer interface using the unified Google GenAI SDK
type GenAI struct {
	client     *genai.Client
	model      string
	imageByURI bool
}

// NewGenAI creates a new GenAI Completer instance
func NewGenAI(ctx context.Context, cfg GenAIConfig) (*GenAI, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Project != "" {
		clientConfig = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	} else if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai api key or vertex project is required")
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GenAI{
		client:     client,
		model:      cfg.Model,
		imageByURI: cfg.ImageByURI,
	}, nil
}

// CompleteImage sends the prompt together with the receipt image
func (g *GenAI) CompleteImage(ctx context.Context, prompt string, img Image) (string, error) {
	var imagePart *genai.Part
	if g.imageByURI && img.URL != "" && !isHEICMimeType(img.MIMEType) {
		imagePart = genai.NewPartFromURI(img.URL, img.MIMEType)
	} else {
		data, mimeType, _, err := prepareImageData(img.Data, img.MIMEType)
		if err != nil {
			return "", err
		}
		imagePart = genai.NewPartFromBytes(data, mimeType)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			imagePart,
		}, genai.RoleUser),
	}
	return g.generate(ctx, contents)
}

// CompleteText sends a single text prompt
func (g *GenAI) CompleteText(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, genai.Text(prompt))
}

func (g *GenAI) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// Close is a no-op; the genai client holds no resources that need releasing
func (g *GenAI) Close() error {
	return nil
}
