package logs

import "fmt"

func SetRed(s string) string         { return fmt.Sprintf("\033[31m%s\033[0m", s) }
func SetGreen(s string) string       { return fmt.Sprintf("\033[32m%s\033[0m", s) }
func SetYellow(s string) string      { return fmt.Sprintf("\033[33m%s\033[0m", s) }
func SetBlue(s string) string        { return fmt.Sprintf("\033[34m%s\033[0m", s) }
func SetBrightBlack(s string) string { return fmt.Sprintf("\033[90m%s\033[0m", s) }

// PrintError and PrintWarn are the severity tags of boot-stage messages.
func PrintError() string { return SetRed("Error") }
func PrintWarn() string  { return SetYellow("Warning") }
