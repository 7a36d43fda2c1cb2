package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhere(t *testing.T) {
	var w Where
	assert.Equal(t, "", w.SQL())
	assert.Empty(t, w.Args())

	w.Add("status = ?", "paid")
	w.Add("(email ILIKE ? OR number ILIKE ?)", "%a%", "%a%")

	assert.Equal(t, " WHERE status = $1 AND (email ILIKE $2 OR number ILIKE $3)", w.SQL())
	assert.Equal(t, []any{"paid", "%a%", "%a%", 20, 0}, w.Args(20, 0))
	assert.Equal(t, "$4", w.Next(1))
	assert.Equal(t, "$5", w.Next(2))
}

func TestLike(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, Like(" 50%_off "))
}
