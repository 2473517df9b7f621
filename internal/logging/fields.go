package logging

import (
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/rrosmaninho/ICG-ISS/model"
)

// Field is one structured attribute.
type Field struct {
	Key   string
	Value any
}

// Generic helpers.
func String(key, value string) Field        { return Field{Key: key, Value: value} }
func Int(key string, value int) Field       { return Field{Key: key, Value: value} }
func Float(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field     { return Field{Key: key, Value: value} }
func Any(key string, value any) Field       { return Field{Key: key, Value: value} }

// Duration logs d in its String form so text and JSON output agree.
func Duration(key string, d time.Duration) Field { return String(key, d.String()) }

// Err records err under "error"; nil becomes an empty string.
func Err(err error) Field {
	if err == nil {
		return String("error", "")
	}
	return String("error", err.Error())
}

// Mode records a focus mode under key ("mode", "from", "to").
func Mode(key string, m model.FocusMode) Field { return String(key, m.String()) }

// Body records a celestial body under "body".
func Body(b model.BodyID) Field { return String("body", b.String()) }

// SimTime records simulation seconds under "sim_time".
func SimTime(t float64) Field { return Float("sim_time", t) }

// Vec3 records a vector as a {x, y, z} group.
func Vec3(key string, v mgl64.Vec3) Field {
	return Field{Key: key, Value: slog.GroupValue(
		slog.Float64("x", v[0]),
		slog.Float64("y", v[1]),
		slog.Float64("z", v[2]),
	)}
}

func attrs(fields []Field) []slog.Attr {
	out := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		if v, ok := f.Value.(slog.Value); ok {
			out = append(out, slog.Attr{Key: f.Key, Value: v})
			continue
		}
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}
