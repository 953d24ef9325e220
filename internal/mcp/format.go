package mcptools

import (
	"blockyweb/internal/actions"
	"blockyweb/internal/blocky"
)

type StatusDTO struct {
	Enabled         bool `json:"enabled"`
	AutoEnableInSec uint `json:"auto_enable_in_sec,omitempty"`
}

type ResultDTO struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Level   string `json:"level,omitempty"`
}

func StatusToDTO(s blocky.BlockingStatus) StatusDTO {
	dto := StatusDTO{Enabled: s.Enabled}
	if !s.Enabled {
		dto.AutoEnableInSec = s.AutoEnableInSec
	}
	return dto
}

// ResultToDTO drops the UI style class in favour of a plain level name.
func ResultToDTO(r actions.Result) ResultDTO {
	level := ""
	switch r.Type {
	case actions.TypePrimary:
		level = "info"
	case actions.TypeWarning:
		level = "warning"
	case actions.TypeDanger:
		level = "error"
	}
	return ResultDTO{OK: r.RC, Message: r.Message, Level: level}
}
