//go:build !tinygo && cgo

package renderaux

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/conemarch"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// UIConfig parametrizes the interactive viewer.
type UIConfig struct {
	Width  int
	Height int
	// Context cancels the render loop when done. May be nil.
	Context context.Context
}

// UI opens a window raymarching the scene in a fragment shader with an
// orbiting mouse camera. Dragging rotates, scrolling zooms. Animated scenes
// redraw continuously; static scenes only on input.
func UI(scene *conemarch.Scene, cfg UIConfig) error {
	if cfg.Width == 0 {
		cfg.Width = 800
	}
	if cfg.Height == 0 {
		cfg.Height = 600
	}
	bb := scene.Bounds()
	diag := bb.Diagonal()
	animated := scene.Animated()
	window, term, err := startGLFW(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer term()
	fragSrc := makeFragSource(scene)
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex: `#version 460
in vec2 aPos;
out vec2 vTexCoord;
void main() {
    vTexCoord = aPos * 0.5 + 0.5;
    gl_Position = vec4(aPos, 0.0, 1.0);
}
` + "\x00",
		Fragment: fragSrc,
	})
	if err != nil {
		return fmt.Errorf("%s\n\n%w", fragSrc, err)
	}
	prog.Bind()
	// Fullscreen quad.
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	vertices := []float32{
		-1.0, -1.0,
		1.0, -1.0,
		-1.0, 1.0,
		-1.0, 1.0,
		1.0, -1.0,
		1.0, 1.0,
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	camDistUniform, err := prog.UniformLocation("uCamDist\x00")
	if err != nil {
		return err
	}
	maxDistUniform, err := prog.UniformLocation("uMaxDist\x00")
	if err != nil {
		return err
	}
	resUniform, err := prog.UniformLocation("uResolution\x00")
	if err != nil {
		return err
	}
	yawUniform, err := prog.UniformLocation("uYaw\x00")
	if err != nil {
		return err
	}
	pitchUniform, err := prog.UniformLocation("uPitch\x00")
	if err != nil {
		return err
	}
	var timeUniform int32 = -1
	if animated {
		timeUniform, err = prog.UniformLocation("SceneTime\x00")
		if err != nil {
			return err
		}
	}
	posAttrib, err := prog.AttribLocation("aPos\x00")
	if err != nil {
		return err
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))

	minZoom := float64(diag * 0.01)
	maxZoom := float64(diag * 10)
	var (
		yaw            float64
		pitch          float64 = 0.5
		lastMouseX     float64
		lastMouseY     float64
		camDist        float64 = float64(diag)
		firstMouseMove         = true
		isMousePressed         = false
		sensitivity            = 0.005
		refresh                = true
	)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos float64, ypos float64) {
		if !isMousePressed {
			return
		}
		refresh = true
		if firstMouseMove {
			lastMouseX = xpos
			lastMouseY = ypos
			firstMouseMove = false
		}
		yaw += (xpos - lastMouseX) * sensitivity
		pitch -= (ypos - lastMouseY) * sensitivity
		maxPitch := math.Pi/2 - 0.01
		if pitch > maxPitch {
			pitch = maxPitch
		}
		if pitch < -maxPitch {
			pitch = -maxPitch
		}
		lastMouseX = xpos
		lastMouseY = ypos
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		refresh = true
		camDist -= yoff * (camDist*.1 + .01)
		if camDist < minZoom {
			camDist = minZoom
		}
		if camDist > maxZoom {
			camDist = maxZoom
		}
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		refresh = true
		if action == glfw.Press {
			isMousePressed = true
			firstMouseMove = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else if action == glfw.Release {
			isMousePressed = false
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})

	ctx := cfg.Context
	var fps FPSLogger
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		width, height := window.GetSize()
		gl.ClearColor(0.0, 0.0, 0.0, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		prog.Bind()
		gl.Uniform1f(camDistUniform, float32(camDist))
		gl.Uniform2f(resUniform, float32(width), float32(height))
		gl.Uniform1f(yawUniform, float32(yaw))
		gl.Uniform1f(pitchUniform, float32(pitch))
		gl.Uniform1f(maxDistUniform, float32(camDist)+diag)
		if animated {
			gl.Uniform1f(timeUniform, float32(glfw.GetTime()))
		}
		gl.BindVertexArray(vao)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		window.SwapBuffers()
		fps.Frame()

		for {
			time.Sleep(time.Second / 60)
			glfw.PollEvents()
			if animated || refresh || window.ShouldClose() {
				refresh = false
				break
			}
		}
	}
	return nil
}

// makeFragSource generates the fragment shader raymarching the scene with
// the same estimators the CPU pipeline uses: eps*t hit threshold, five step
// ambient occlusion, min-ratio soft shadows and Schlick fresnel.
func makeFragSource(scene *conemarch.Scene) string {
	var buf bytes.Buffer
	buf.WriteString("#version 460\n")
	decl, distFn, colorFn := scene.AppendShaderDecl(nil)
	buf.Write(decl)
	fmt.Fprintf(&buf, "float sdf(vec3 p) {\n\treturn %s(p);\n}\n", distFn)
	fmt.Fprintf(&buf, "vec4 sdfc(vec3 p) {\n\treturn %s(p);\n}\n", colorFn)
	buf.WriteString(`in vec2 vTexCoord;
out vec4 fragColor;

uniform float uMaxDist;
uniform vec2 uResolution;
uniform float uYaw;
uniform float uPitch;
uniform float uCamDist;

vec3 calcNormal(vec3 pos) {
    const float eps = 0.0001;
    vec2 e = vec2(1.0, -1.0) * 0.5773;
    return normalize(
        e.xyy * sdf(pos + e.xyy * eps) +
        e.yyx * sdf(pos + e.yyx * eps) +
        e.yxy * sdf(pos + e.yxy * eps) +
        e.xxx * sdf(pos + e.xxx * eps)
    );
}

float softShadow(vec3 ro, vec3 rd) {
    float res = 1.0;
    float t = 0.02;
    for (int i = 0; i < 64; i++) {
        float h = sdf(ro + rd * t);
        if (h < 1e-4) return 0.0;
        res = min(res, 8.0 * h / t);
        t += clamp(h, 0.01, 0.2);
        if (t > uMaxDist) break;
    }
    res = clamp(res, 0.0, 1.0);
    return res * res * (3.0 - 2.0 * res);
}

float calcAO(vec3 pos, vec3 nor) {
    float occ = 0.0;
    float sca = 1.0;
    for (int i = 0; i < 5; i++) {
        float h = 0.01 + 0.12 * float(i) / 4.0;
        float d = sdf(pos + h * nor);
        occ += (h - d) * sca;
        sca *= 0.95;
    }
    return clamp(1.0 - 3.0 * occ, 0.0, 1.0) * (0.5 + 0.5 * nor.y);
}

void main() {
    vec2 fragCoord = vTexCoord * uResolution;

    vec3 ta = vec3(0.0);
    vec3 dir;
    dir.x = cos(uPitch) * sin(uYaw);
    dir.y = sin(uPitch);
    dir.z = cos(uPitch) * cos(uYaw);
    vec3 ro = ta - dir * uCamDist;

    vec3 ww = normalize(ta - ro);
    vec3 uu = normalize(cross(ww, vec3(0.0, 1.0, 0.0)));
    vec3 vv = cross(uu, ww);

    vec2 p = (2.0 * fragCoord - uResolution) / uResolution.y;
    vec3 rd = normalize(p.x * uu + p.y * vv + 1.5 * ww);

    float t = 0.0;
    bool hit = false;
    for (int i = 0; i < 100; i++) {
        float h = sdf(ro + t * rd);
        if (h < 1e-3 * t) {
            hit = true;
            break;
        }
        t += h;
        if (t > uMaxDist) break;
    }

    vec3 col = mix(vec3(0.85, 0.88, 0.95), vec3(0.25, 0.45, 0.85), clamp(rd.y * 0.5 + 0.5, 0.0, 1.0));
    if (hit) {
        vec3 pos = ro + t * rd;
        vec3 nor = calcNormal(pos);
        vec3 base = sdfc(pos).xyz;
        vec3 lig = normalize(vec3(0.6, 0.7, 0.5));
        float occ = calcAO(pos, nor);
        float sha = softShadow(pos + nor * 0.002, lig);
        float dif = clamp(dot(nor, lig), 0.0, 1.0) * sha;
        float fre = 0.04 + 0.96 * pow(clamp(1.0 - dot(nor, -rd), 0.0, 1.0), 5.0);
        col = base * (0.35 * occ) + base * dif + vec3(fre * 0.25 * occ);
    }
    fragColor = vec4(sqrt(clamp(col, 0.0, 1.0)), 1.0);
}
`)
	buf.WriteByte(0)
	return buf.String()
}

func startGLFW(width, height int) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, err
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err = glfw.CreateWindow(width, height, "conemarch scene viewer", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, err
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, err
	}
	log.Println("OpenGL", gl.GoStr(gl.GetString(gl.VERSION)))
	return window, glfw.Terminate, nil
}
