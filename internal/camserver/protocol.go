// internal/camserver/protocol.go
package camserver

import (
	"regexp"
	"strconv"
	"strings"
)

// Separator terminates every command and every reply record on the socket.
const Separator byte = 0x18

// DefaultPort is the camserver control port.
const DefaultPort = 41234

// Reply codes sent by the camserver.
const (
	CodeError       = 1
	CodeExposure    = 7
	CodeImgpath     = 10
	CodeKill        = 13
	CodeGeneric     = 15
	CodeTemperature = 215
)

// Reply is one decoded reply record: `<code> <OK|ERR> <text>`.
type Reply struct {
	Code int
	OK   bool
	Text string
	Raw  string
}

// Decode parses one record. Records that do not start with a numeric code
// return ok=false.
func Decode(record string) (Reply, bool) {
	raw := strings.TrimLeft(record, " \t\r\n")
	if raw == "" {
		return Reply{}, false
	}

	codeStr, rest, _ := strings.Cut(raw, " ")
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return Reply{}, false
	}

	rest = strings.TrimLeft(rest, " ")
	word, text, _ := strings.Cut(rest, " ")

	r := Reply{
		Code: code,
		OK:   word == "OK",
		Text: strings.TrimSpace(text),
		Raw:  strings.TrimRight(raw, "\r\n"),
	}
	if word != "OK" && word != "ERR" {
		// No status word: keep everything after the code as text.
		r.Text = strings.TrimSpace(rest)
	}
	return r, true
}

// Gain is the detector amplifier gain setting.
type Gain int

const (
	DefaultGain Gain = iota
	LowGain
	MidGain
	HighGain
	UltraHighGain
)

func (g Gain) String() string {
	switch g {
	case LowGain:
		return "low"
	case MidGain:
		return "mid"
	case HighGain:
		return "high"
	case UltraHighGain:
		return "ultra high"
	default:
		return "default"
	}
}

// gainFromServer maps the gain wording used in "Settings:" replies.
var gainFromServer = map[string]Gain{
	"low":        LowGain,
	"mid":        MidGain,
	"high":       HighGain,
	"ultra high": UltraHighGain,
}

// gainToServer maps a gain to its setthreshold argument.
var gainToServer = map[Gain]string{
	LowGain:       "lowG",
	MidGain:       "midG",
	HighGain:      "highG",
	UltraHighGain: "uhighG",
}

// ParseGain accepts the server wording or the setthreshold argument.
func ParseGain(s string) (Gain, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if g, ok := gainFromServer[s]; ok {
		return g, true
	}
	for g, name := range gainToServer {
		if strings.ToLower(name) == s {
			return g, true
		}
	}
	if s == "" || s == "default" {
		return DefaultGain, true
	}
	return DefaultGain, false
}

// TriggerMode selects the camserver start command.
type TriggerMode int

const (
	InternalSingle TriggerMode = iota
	InternalMulti
	ExternalStart
	ExternalMultiStart
	ExternalGate
)

func (m TriggerMode) String() string {
	switch m {
	case InternalSingle:
		return "internal"
	case InternalMulti:
		return "internal-multi"
	case ExternalStart:
		return "external-start"
	case ExternalMultiStart:
		return "external-multi-start"
	case ExternalGate:
		return "external-gate"
	default:
		return "TriggerMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// startCommand is the camserver verb that starts an acquisition in mode m.
func (m TriggerMode) startCommand() string {
	switch m {
	case ExternalStart:
		return "exttrigger"
	case ExternalMultiStart:
		return "extmtrigger"
	case ExternalGate:
		return "extenable"
	default:
		return "exposure"
	}
}

// thresholdSettings parses "Settings: mid gain; threshold: 6300 eV; vcmp: 0.654 V".
func thresholdSettings(text string) (Gain, int, bool) {
	_, rest, ok := strings.Cut(text, "Settings:")
	if !ok {
		return DefaultGain, 0, false
	}
	parts := strings.Split(rest, ";")
	if len(parts) < 2 {
		return DefaultGain, 0, false
	}

	gain := DefaultGain
	words := strings.Fields(parts[0])
	if len(words) > 1 && words[len(words)-1] == "gain" {
		words = words[:len(words)-1]
	}
	if g, ok := gainFromServer[strings.Join(words, " ")]; ok {
		gain = g
	}

	thr := strings.Fields(parts[1])
	if len(thr) < 2 {
		return gain, 0, false
	}
	v, ok := leadingNumber(thr[1])
	if !ok {
		return gain, 0, false
	}
	return gain, int(v), true
}

// valueAfterColon returns the number that follows the first ':' in text.
func valueAfterColon(text string) (float64, bool) {
	_, rest, ok := strings.Cut(text, ":")
	if !ok {
		return 0, false
	}
	return leadingNumber(rest)
}

// leadingNumber parses the numeric prefix of the first field of s.
func leadingNumber(s string) (float64, bool) {
	f := strings.Fields(s)
	if len(f) == 0 {
		return 0, false
	}
	tok := f[0]
	end := 0
	for end < len(tok) && strings.IndexByte("+-.0123456789eE", tok[end]) >= 0 {
		end++
	}
	tok = strings.TrimRight(tok[:end], "eE+-")
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var (
	temperatureRe = regexp.MustCompile(`Temperature\s*=\s*([-+]?[0-9]*\.?[0-9]+)`)
	humidityRe    = regexp.MustCompile(`Humidity\s*=\s*([-+]?[0-9]*\.?[0-9]+)`)
)

// decodeTH parses one line per channel:
// "Channel 0: Temperature = 30.9C, Rel. Humidity = 28.3%".
func decodeTH(text string) (temperature, humidity []float64) {
	for _, line := range strings.Split(text, "\n") {
		t := temperatureRe.FindStringSubmatch(line)
		h := humidityRe.FindStringSubmatch(line)
		if t == nil || h == nil {
			continue
		}
		tv, err1 := strconv.ParseFloat(t[1], 64)
		hv, err2 := strconv.ParseFloat(h[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		temperature = append(temperature, tv)
		humidity = append(humidity, hv)
	}
	return temperature, humidity
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
