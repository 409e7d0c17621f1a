package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		ident string
		want  TokenType
	}{
		{"create", CREATE},
		{"table", TABLE},
		{"temp", TEMPORARY},
		{"auto_increment", AUTO_INCREMENT},
		{"autoincrement", AUTO_INCREMENT},
		{"users", IDENT},
		{"bigint", IDENT},
	}

	for _, tt := range tests {
		t.Run(tt.ident, func(t *testing.T) {
			assert.Equal(t, tt.want, LookupIdent(tt.ident))
		})
	}
}

func TestTokenType_String(t *testing.T) {
	assert.Equal(t, "CREATE", CREATE.String())
	assert.Equal(t, ";", SEMICOLON.String())
	assert.Equal(t, "TOKEN(9999)", TokenType(9999).String())
}

func TestToken_IsWord(t *testing.T) {
	assert.True(t, Token{Type: IDENT}.IsWord())
	assert.True(t, Token{Type: KEY}.IsWord())
	assert.False(t, Token{Type: STRING}.IsWord())
	assert.False(t, Token{Type: COMMA}.IsWord())
}
