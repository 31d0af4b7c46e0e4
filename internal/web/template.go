package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/sensor-pipeline/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"celsius": func(c float64) string {
		return fmt.Sprintf("%.2f C", c)
	},
	"key": func(r rune) string {
		if r == 0 {
			return "none"
		}
		return string(r)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Sensor Pipeline</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.alarm { color: red; font-weight: bold; }
.ok { color: green; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
pre.lcd { background: #263; color: #cfc; padding: 6px 10px; width: 24ch; }
</style>
</head>
<body>
<h1>Sensor Pipeline{{if .Config.Simulated}} (simulated){{end}}</h1>

<h2>Readings</h2>
<table>
<tr><th>Temperature</th>{{if .HasTemperature}}<td id="temperature">{{celsius .Temperature}}</td>{{else}}<td id="temperature" class="unknown">no sample yet</td>{{end}}</tr>
<tr><th>Alarm</th><td id="alarm" class="{{if .Alarm}}alarm{{else}}ok{{end}}">{{if .Alarm}}ON{{else}}off{{end}} (threshold {{.Config.ThresholdC}} C)</td></tr>
{{if .HasTilt}}<tr><th>Pitch</th><td id="pitch">{{.Tilt.Pitch}}&deg;</td></tr>
<tr><th>Roll</th><td id="roll">{{.Tilt.Roll}}&deg;</td></tr>
<tr><th>Motor</th><td>{{.Tilt.Position}}us</td></tr>{{else}}<tr><th>Tilt</th><td class="unknown">no sample yet</td></tr>{{end}}
<tr><th>Last key</th><td id="last-key">{{key .LastKey}}</td></tr>
</table>
{{if .Screen}}
<h2>Display</h2>
<pre class="lcd" id="screen">{{.Screen}}</pre>
{{end}}
<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}none{{end}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Temperature samples</th><td>{{.Counts.TemperatureSamples}}</td></tr>
<tr><th>Tilt samples</th><td>{{.Counts.TiltSamples}}</td></tr>
<tr><th>Keys</th><td>{{.Counts.Keys}}</td></tr>
<tr><th>Alarm trips</th><td>{{.Counts.AlarmTrips}}</td></tr>
<tr><th>Read errors</th><td>{{.Counts.ReadErrors}}</td></tr>
<tr><th>Coalesced signals</th><td>{{.Coalesced}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sample interval</th><td>{{.Config.SampleIntervalMs}}ms</td></tr>
<tr><th>Filter depth</th><td>{{.Config.FilterDepth}} / {{.Config.TiltFilterDepth}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, screen string) {
	// Snapshot has an Uptime() method but the template needs a field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Screen string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Screen:   screen,
	}
	indexTmpl.Execute(w, data)
}
