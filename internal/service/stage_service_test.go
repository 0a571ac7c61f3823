package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Fechado", "fechado"},
		{"spaces become dashes", "Novo Lead", "novo-lead"},
		{"collapses repeated spaces", "Em   Atendimento", "em-atendimento"},
		{"trims", "  Aguardando Cliente  ", "aguardando-cliente"},
		{"already slugged", "pos-venda", "pos-venda"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
