package common

// Key codes delivered by the window's key callbacks. Printable keys use their ASCII value,
// the rest follow GLFW numbering.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW = 87
	KeyA = 65
	KeyS = 83
	KeyD = 68
	KeyQ = 81
	KeyE = 69
	KeyC = 67
	KeyF = 70
	KeyR = 82

	Key1 = 49
	Key2 = 50
	Key3 = 51
	Key4 = 52
	Key5 = 53
	Key6 = 54

	KeyEsc = 256
)

// DebugModeKeys maps the number row to debug visualizations in declaration order,
// 1 for the lit composite through 6 for the shadow map.
var DebugModeKeys = [...]uint32{Key1, Key2, Key3, Key4, Key5, Key6}
