package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("loud").GetLevel())
}

func TestComponent(t *testing.T) {
	l := New("info")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	Component(l, "fests").Info("fest created")

	assert.Contains(t, buf.String(), "from=fests")
	assert.Contains(t, buf.String(), "fest created")
}
