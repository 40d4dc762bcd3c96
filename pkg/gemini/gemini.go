package gemini

import (
	"ProctorGuard/pkg/proctor"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type IGemini interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error)
	Close() error
}

type geminiClient struct {
	modelName string
	client    *genai.Client
}

func NewGeminiClient() (IGemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", proctor.ErrModelUnavailable)
	}

	modelName := os.Getenv("GEMINI_MODEL_NAME")
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &geminiClient{
		modelName: modelName,
		client:    client,
	}, nil
}

func (g *geminiClient) AnalyzeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.ResponseMIMEType = "application/json"
	temperature := float32(0)
	model.Temperature = &temperature

	format := strings.TrimPrefix(mimeType, "image/")
	res, err := model.GenerateContent(ctx, genai.Text(prompt), genai.ImageData(format, image))
	if err != nil {
		return "", err
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from Gemini API")
	}

	text, ok := res.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", errors.New("unexpected response format from Gemini API")
	}

	return string(text), nil
}

func (g *geminiClient) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// ObjectModel asks a vision LLM which catalogued objects are visible. It is
// slower than the local detector and is meant for low frame rates.
type ObjectModel struct {
	client  IGemini
	labels  func() []string
	quality int
}

// NewObjectModel builds the model. labels is called per frame so a
// reconfigured catalogue is picked up without rebuilding the model.
func NewObjectModel(client IGemini, labels func() []string) *ObjectModel {
	return &ObjectModel{client: client, labels: labels, quality: 80}
}

type objectsResponse struct {
	Objects []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"objects"`
}

func (m *ObjectModel) DetectObjects(ctx context.Context, frame proctor.Frame) ([]proctor.ObjectDetection, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image(), &jpeg.Options{Quality: m.quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	text, err := m.client.AnalyzeImage(ctx, buf.Bytes(), "image/jpeg", BuildPrompt(m.labels()))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	return ParseObjects(text)
}

func (m *ObjectModel) Close() error {
	return m.client.Close()
}

func BuildPrompt(labels []string) string {
	var b strings.Builder
	b.WriteString("You are an exam proctoring assistant. List every one of the following objects that is visible in the image: ")
	b.WriteString(strings.Join(labels, ", "))
	b.WriteString(".\nAnswer with JSON only, in the form ")
	b.WriteString(`{"objects":[{"label":"<one of the labels above>","confidence":<0..1>}]}`)
	b.WriteString(". Report each separate instance as its own entry. Use an empty list when none are visible.")
	return b.String()
}

// ParseObjects extracts the JSON object from the reply, tolerating code fences
// or prose around it.
func ParseObjects(response string) ([]proctor.ObjectDetection, error) {
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")

	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return nil, errors.New("cannot find valid JSON in response")
	}

	var parsed objectsResponse
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON in response: %w", err)
	}

	out := make([]proctor.ObjectDetection, 0, len(parsed.Objects))
	for _, o := range parsed.Objects {
		label := proctor.NormalizeLabel(o.Label)
		if label == "" {
			continue
		}
		conf := o.Confidence
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}
		out = append(out, proctor.ObjectDetection{Label: label, Confidence: conf})
	}
	return out, nil
}
