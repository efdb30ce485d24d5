package ml

// Config selects and configures a backend.
type Config struct {
	Type            string // "gemini", "vertex" or "local"
	APIKey          string
	ProjectID       string
	Location        string
	CredentialsFile string
	OllamaHost      string
	Models          ModelNames
}

// ModelNames maps request kinds to provider model ids.
type ModelNames struct {
	Fast    string
	Quality string
	Vision  string
	Live    string
}

const (
	defaultFastModel    = "gemini-2.5-flash"
	defaultQualityModel = "gemini-2.5-pro"
	defaultLiveModel    = "gemini-2.5-flash-native-audio-preview-09-2025"
	defaultLocalModel   = "llama3.2-vision"
	liveVoice           = "Kore"
)

func (c Config) withDefaults() Config {
	if c.Type == "" {
		c.Type = "gemini"
	}
	if c.Type == "local" {
		// gemini names mean nothing to ollama
		if c.Models.Fast == "" || c.Models.Fast == defaultFastModel {
			c.Models.Fast = defaultLocalModel
		}
		if c.Models.Quality == "" || c.Models.Quality == defaultQualityModel {
			c.Models.Quality = c.Models.Fast
		}
		if c.Models.Vision == "" || c.Models.Vision == defaultQualityModel {
			c.Models.Vision = c.Models.Quality
		}
	}
	if c.Models.Fast == "" {
		c.Models.Fast = defaultFastModel
	}
	if c.Models.Quality == "" {
		c.Models.Quality = defaultQualityModel
	}
	if c.Models.Vision == "" {
		c.Models.Vision = c.Models.Quality
	}
	if c.Models.Live == "" {
		c.Models.Live = defaultLiveModel
	}
	if c.Location == "" {
		c.Location = "us-central1"
	}
	if c.OllamaHost == "" {
		c.OllamaHost = "http://localhost:11434"
	}
	return c
}

func (c Config) model(name string) string {
	if name == "" {
		return c.Models.Quality
	}
	return name
}
