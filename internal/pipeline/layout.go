package pipeline

import "fmt"

// Screen layout on the 2x24 display, columns counted from 1.
//
//	row 1: "Temp:  27.3C      ALARM"
//	row 2: "P:  -3 R:  45     Key:5"
const (
	tempColumn      = 1
	alarmColumn     = 18
	tiltColumn      = 1
	keyColumn       = 18
	alarmIndicator  = "ALARM"
	clearIndicator  = "     "
	initialTempText = "Temp:   --.-C"
	initialTiltText = "P:  -- R:  --"
)

func temperatureText(celsius float64) string {
	return fmt.Sprintf("Temp:%7.1fC", celsius)
}

func alarmText(on bool) string {
	if on {
		return alarmIndicator
	}
	return clearIndicator
}

func tiltText(pitch, roll int) string {
	return fmt.Sprintf("P:%4d R:%4d", pitch, roll)
}

func keyText(key rune) string {
	return "Key:" + string(key)
}
