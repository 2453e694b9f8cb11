package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/countersign/internal/core/domain"
)

// recipientsFile is the YAML layout read by --recipients
type recipientsFile struct {
	Recipients []recipientSpec `yaml:"recipients"`
}

type recipientSpec struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role,omitempty"`
	Rank  *int   `yaml:"rank,omitempty"`
}

// fieldsFile is the YAML layout read by --fields
type fieldsFile struct {
	Fields []fieldSpec `yaml:"fields"`
}

type fieldSpec struct {
	ID        string  `yaml:"id"`
	Recipient string  `yaml:"recipient"`
	Type      string  `yaml:"type"`
	Page      int     `yaml:"page"`
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Width     float64 `yaml:"width,omitempty"`
	Height    float64 `yaml:"height,omitempty"`
	Value     string  `yaml:"value,omitempty"`
}

func readYAML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadRecipients(path string) ([]*domain.Recipient, error) {
	var file recipientsFile
	if err := readYAML(path, &file); err != nil {
		return nil, err
	}
	recipients := make([]*domain.Recipient, 0, len(file.Recipients))
	for _, r := range file.Recipients {
		recipients = append(recipients, &domain.Recipient{
			ID:    r.ID,
			Name:  r.Name,
			Email: r.Email,
			Role:  r.Role,
			Rank:  r.Rank,
		})
	}
	return recipients, nil
}

func loadFields(path string) ([]*domain.Field, error) {
	var file fieldsFile
	if err := readYAML(path, &file); err != nil {
		return nil, err
	}
	fields := make([]*domain.Field, 0, len(file.Fields))
	for _, f := range file.Fields {
		field := &domain.Field{
			ID:          f.ID,
			RecipientID: f.Recipient,
			Type:        domain.FieldType(f.Type),
			Position:    domain.Position{Page: f.Page, X: f.X, Y: f.Y},
			Width:       f.Width,
			Height:      f.Height,
			Value:       f.Value,
		}
		if err := field.Validate(); err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}
