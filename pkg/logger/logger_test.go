package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew_ParsesLevel(t *testing.T) {
	l := New("debug")
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	_, ok := l.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := New("loud")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
