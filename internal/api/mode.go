package api

import (
	"fmt"
	"strings"
)

// Mode selects which recognition endpoint a frame is sent to.
type Mode int32

const (
	ModeRecognize Mode = iota
	ModeRegister
	ModeFaceReg
)

type modeInfo struct {
	name string
	path string
}

// modeTable is the only place endpoint paths are spelled out.
var modeTable = map[Mode]modeInfo{
	ModeRecognize: {name: "recognize", path: "/recognize-frame"},
	ModeRegister:  {name: "register", path: "/register-frame"},
	ModeFaceReg:   {name: "face-reg", path: "/face-reg"},
}

// Modes lists every supported mode in display order.
func Modes() []Mode {
	return []Mode{ModeRecognize, ModeRegister, ModeFaceReg}
}

func (m Mode) String() string {
	if info, ok := modeTable[m]; ok {
		return info.name
	}
	return fmt.Sprintf("mode(%d)", int32(m))
}

// Path returns the URL path for the mode, or "" for an unknown mode.
func (m Mode) Path() string {
	return modeTable[m].path
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	_, ok := modeTable[m]
	return ok
}

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, info := range modeTable {
		if info.name == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q (want recognize, register or face-reg)", s)
}

// MarshalText lets Mode appear by name in JSON and YAML.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", int32(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText parses a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
