package assert

import (
	"fmt"
	"runtime"
)

func location() string {
	_, fn, line, _ := runtime.Caller(2)
	return fmt.Sprintf("%s:%d", fn, line)
}

func OK(err error) {
	if err != nil {
		panic(fmt.Sprintf("assertOK failed at %s: %v", location(), err))
	}
}

func True(ok bool) {
	if !ok {
		panic(fmt.Sprintf("assertTrue failed at %s", location()))
	}
}
