package logger

import (
	"fmt"
	"log"

	"github.com/fatih/color"
)

type ColorLogger struct {
	*log.Logger
}

type Color = color.Attribute

const (
	ColorBlack  = color.FgBlack
	ColorRed    = color.FgRed
	ColorGreen  = color.FgGreen
	ColorYellow = color.FgYellow
	ColorBlue   = color.FgBlue
)

func NewColorLogger(lg *log.Logger) *ColorLogger {
	c := ColorLogger{
		lg,
	}
	return &c
}

func (c *ColorLogger) Printcf(attr Color, format string, args ...interface{}) {
	c.Print(color.New(attr).Sprint(fmt.Sprintf(format, args...)))
}

func (c *ColorLogger) Printc(attr Color, s string) {
	c.Print(color.New(attr).Sprint(s))
}
