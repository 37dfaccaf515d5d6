//go:build !bootdebug

package app

import "github.com/dprg/libdprg/hal"

func bootDiagSetStep(string)   {}
func bootDiagStart(hal.Logger) {}
