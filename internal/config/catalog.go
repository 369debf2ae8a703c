package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hejz/hejz-backend/internal/logger"
)

// Catalog is the controlled vocabulary for feed tagging. Posts may carry any
// genre/emotion from it, or none; anything outside it is rejected at create
// time so preference keys never fragment across spellings.
type Catalog struct {
	Genres   []string `yaml:"genres"`
	Emotions []string `yaml:"emotions"`

	genreSet   map[string]struct{}
	emotionSet map[string]struct{}
}

var defaultCatalog = Catalog{
	Genres:   []string{"Pop", "Rock", "HipHop", "Jazz", "Classical", "Electronic", "RnB", "Country", "Ballad", "Indie"},
	Emotions: []string{"JOY", "SADNESS", "ANGER", "CALM", "EXCITEMENT", "LOVE", "NOSTALGIA"},
}

// LoadCatalog reads the vocabulary file at path. An empty path falls back to
// the built-in defaults so local runs need no config file.
func LoadCatalog(path string, log *logger.Logger) (*Catalog, error) {
	c := defaultCatalog
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		c = Catalog{}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse catalog file: %w", err)
		}
		if len(c.Genres) == 0 || len(c.Emotions) == 0 {
			return nil, fmt.Errorf("catalog file %s must define genres and emotions", path)
		}
	}
	c.genreSet = toSet(c.Genres)
	c.emotionSet = toSet(c.Emotions)
	log.Info("catalog loaded", "genres", len(c.Genres), "emotions", len(c.Emotions))
	return &c, nil
}

func toSet(values []string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (c *Catalog) ValidGenre(genre string) bool {
	_, ok := c.genreSet[genre]
	return ok
}

func (c *Catalog) ValidEmotion(emotion string) bool {
	_, ok := c.emotionSet[emotion]
	return ok
}
