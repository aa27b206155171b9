package model

import (
	"fmt"
	"strings"
)

// Mode selects between direct numerical simulation and large-eddy simulation.
type Mode int

const (
	DNS Mode = iota
	LES
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "dns":
		return DNS, nil
	case "les":
		return LES, nil
	}
	return 0, fmt.Errorf("unknown simulation mode %q (want dns or les)", s)
}

func (m Mode) String() string {
	switch m {
	case DNS:
		return "dns"
	case LES:
		return "les"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}
