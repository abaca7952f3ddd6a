package util

import (
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
)

type Model interface {
	tea.Model
	tea.ViewModel
}

type Cursor interface {
	Cursor() *tea.Cursor
}

func CmdHandler(msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return msg
	}
}

type InfoType int

const (
	InfoTypeInfo InfoType = iota
	InfoTypeSuccess
	InfoTypeWarn
	InfoTypeError
)

const (
	ErrorTTL   = 5 * time.Second
	SuccessTTL = 3 * time.Second
)

type (
	InfoMsg struct {
		Type InfoType
		Msg  string
		TTL  time.Duration
	}
	ClearStatusMsg struct{}
)

func ReportError(err error) tea.Cmd {
	return CmdHandler(InfoMsg{
		Type: InfoTypeError,
		Msg:  err.Error(),
		TTL:  ErrorTTL,
	})
}

func ReportSuccess(info string) tea.Cmd {
	return CmdHandler(InfoMsg{
		Type: InfoTypeSuccess,
		Msg:  info,
		TTL:  SuccessTTL,
	})
}

func ReportWarn(warn string) tea.Cmd {
	return CmdHandler(InfoMsg{
		Type: InfoTypeWarn,
		Msg:  warn,
		TTL:  ErrorTTL,
	})
}
