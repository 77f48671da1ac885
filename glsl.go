package conemarch

import (
	"fmt"
	"io"
)

// shaderHeader precedes compute programs in the combined shader format
// understood by glgl.ParseCombined.
const shaderHeader = "#shader compute\n#version 430\n"

// Animated reports whether the scene distance field depends on scene time.
func (s *Scene) Animated() bool {
	for i := range s.nodes {
		if s.nodes[i].kind == nodeOrbit {
			return true
		}
	}
	return false
}

// AppendShaderDecl appends GLSL declarations of the scene distance and color
// fields to dst. Two functions per node are emitted: sdN(vec3 p) returning
// distance and sdcN(vec3 p) returning vec4(color, distance). The names of
// the root functions are returned. Animated scenes declare a SceneTime
// uniform which callers must set each frame.
func (s *Scene) AppendShaderDecl(dst []byte) (buf []byte, distFn, colorFn string) {
	if s.Animated() {
		dst = append(dst, "uniform float SceneTime;\n"...)
	}
	for i := range s.nodes {
		dst = s.appendNodeDecl(dst, NodeHandle(i))
	}
	return dst, sdName(s.root, false), sdName(s.root, true)
}

func sdName(h NodeHandle, color bool) string {
	if color {
		return fmt.Sprintf("sdc%d", h)
	}
	return fmt.Sprintf("sd%d", h)
}

func (s *Scene) appendNodeDecl(dst []byte, h NodeHandle) []byte {
	n := &s.nodes[h]
	dst = fmt.Appendf(dst, "float %s(vec3 p){\n", sdName(h, false))
	dst = n.appendDistBody(dst, sdName(n.a, false), sdName(n.b, false))
	dst = append(dst, "}\n"...)
	dst = fmt.Appendf(dst, "vec4 %s(vec3 p){\n", sdName(h, true))
	dst = n.appendColorBody(dst, h)
	dst = append(dst, "}\n"...)
	return dst
}

func (n *node) appendDistBody(dst []byte, fa, fb string) []byte {
	switch n.kind {
	case nodeSphere:
		return fmt.Appendf(dst, "return length(p)-%.9g;\n", n.f0)
	case nodeBox:
		h := n.v
		dst = fmt.Appendf(dst, "vec3 q = abs(p)-vec3(%.9g,%.9g,%.9g);\n", h.X/2, h.Y/2, h.Z/2)
		return append(dst, "return length(max(q,0.0))+min(max(q.x,max(q.y,q.z)),0.0);\n"...)
	case nodeTorus:
		dst = fmt.Appendf(dst, "vec2 t = vec2(length(p.xz)-%.9g, p.y);\n", n.f0)
		return fmt.Appendf(dst, "return length(t)-%.9g;\n", n.f1)
	case nodeBoxFrame:
		e, b := boxFrameArgs(n)
		dst = fmt.Appendf(dst, "p = abs(p)-vec3(%.9g,%.9g,%.9g);\n", b.X, b.Y, b.Z)
		dst = fmt.Appendf(dst, "vec3 q = abs(p+%.9g)-%.9g;\n", e, e)
		dst = append(dst, "return min(min(\n"...)
		dst = append(dst, "  length(max(vec3(p.x,q.y,q.z),0.0))+min(max(p.x,max(q.y,q.z)),0.0),\n"...)
		dst = append(dst, "  length(max(vec3(q.x,p.y,q.z),0.0))+min(max(q.x,max(p.y,q.z)),0.0)),\n"...)
		return append(dst, "  length(max(vec3(q.x,q.y,p.z),0.0))+min(max(q.x,max(q.y,p.z)),0.0));\n"...)
	case nodePlane:
		return fmt.Appendf(dst, "return p.y-%.9g;\n", n.f0)
	case nodeUnion:
		return fmt.Appendf(dst, "return min(%s(p),%s(p));\n", fa, fb)
	case nodeSmoothUnion:
		dst = fmt.Appendf(dst, "float a = %s(p);\nfloat b = %s(p);\n", fa, fb)
		dst = fmt.Appendf(dst, "float h = clamp(0.5+0.5*(b-a)/%.9g, 0.0, 1.0);\n", n.f0)
		return fmt.Appendf(dst, "return mix(b, a, h)-%.9g*h*(1.0-h);\n", n.f0)
	case nodeSmoothDiff:
		dst = fmt.Appendf(dst, "float a = %s(p);\nfloat b = %s(p);\n", fa, fb)
		dst = fmt.Appendf(dst, "float h = clamp(0.5-0.5*(b+a)/%.9g, 0.0, 1.0);\n", n.f0)
		return fmt.Appendf(dst, "return mix(a, -b, h)+%.9g*h*(1.0-h);\n", n.f0)
	case nodeSmoothIntersect:
		dst = fmt.Appendf(dst, "float a = %s(p);\nfloat b = %s(p);\n", fa, fb)
		dst = fmt.Appendf(dst, "float h = clamp(0.5-0.5*(b-a)/%.9g, 0.0, 1.0);\n", n.f0)
		return fmt.Appendf(dst, "return mix(b, a, h)+%.9g*h*(1.0-h);\n", n.f0)
	case nodeTranslate:
		return fmt.Appendf(dst, "return %s(p-vec3(%.9g,%.9g,%.9g));\n", fa, n.v.X, n.v.Y, n.v.Z)
	case nodeOrbit:
		dst = fmt.Appendf(dst, "float ang = %.9g*SceneTime+%.9g;\n", n.f0, n.f1)
		dst = fmt.Appendf(dst, "vec3 off = vec3(%.9g*cos(ang), 0.0, %.9g*sin(ang));\n", n.v.X, n.v.Z)
		return fmt.Appendf(dst, "return %s(p-off);\n", fa)
	}
	panic("unreachable scene node kind")
}

func (n *node) appendColorBody(dst []byte, h NodeHandle) []byte {
	fa, fb := sdName(n.a, true), sdName(n.b, true)
	if n.kind.isPrimitive() {
		c := n.color
		return fmt.Appendf(dst, "return vec4(%.9g,%.9g,%.9g, %s(p));\n", c.X, c.Y, c.Z, sdName(h, false))
	}
	switch n.kind {
	case nodeUnion:
		dst = fmt.Appendf(dst, "vec4 a = %s(p);\nvec4 b = %s(p);\n", fa, fb)
		return append(dst, "return (b.w < a.w) ? b : a;\n"...)
	case nodeSmoothUnion:
		dst = fmt.Appendf(dst, "vec4 a = %s(p);\nvec4 b = %s(p);\n", fa, fb)
		dst = fmt.Appendf(dst, "float h = clamp(0.5+0.5*(b.w-a.w)/%.9g, 0.0, 1.0);\n", n.f0)
		return fmt.Appendf(dst, "return vec4(mix(b.xyz,a.xyz,h), mix(b.w,a.w,h)-%.9g*h*(1.0-h));\n", n.f0)
	case nodeSmoothDiff:
		dst = fmt.Appendf(dst, "vec4 a = %s(p);\nvec4 b = %s(p);\n", fa, fb)
		dst = fmt.Appendf(dst, "float h = clamp(0.5-0.5*(b.w+a.w)/%.9g, 0.0, 1.0);\n", n.f0)
		return fmt.Appendf(dst, "return vec4(a.xyz, mix(a.w,-b.w,h)+%.9g*h*(1.0-h));\n", n.f0)
	case nodeSmoothIntersect:
		dst = fmt.Appendf(dst, "vec4 a = %s(p);\nvec4 b = %s(p);\n", fa, fb)
		dst = fmt.Appendf(dst, "float h = clamp(0.5-0.5*(b.w-a.w)/%.9g, 0.0, 1.0);\n", n.f0)
		return fmt.Appendf(dst, "return vec4(mix(b.xyz,a.xyz,h), mix(b.w,a.w,h)+%.9g*h*(1.0-h));\n", n.f0)
	case nodeTranslate:
		return fmt.Appendf(dst, "return %s(p-vec3(%.9g,%.9g,%.9g));\n", fa, n.v.X, n.v.Y, n.v.Z)
	case nodeOrbit:
		dst = fmt.Appendf(dst, "float ang = %.9g*SceneTime+%.9g;\n", n.f0, n.f1)
		dst = fmt.Appendf(dst, "vec3 off = vec3(%.9g*cos(ang), 0.0, %.9g*sin(ang));\n", n.v.X, n.v.Z)
		return fmt.Appendf(dst, "return %s(p-off);\n", fa)
	}
	panic("unreachable scene node kind")
}

// WriteComputeDistance writes a compute program in combined shader format
// which evaluates the scene distance field over a 1-row image of positions,
// for use with sceneval's GPU evaluator.
func (s *Scene) WriteComputeDistance(w io.Writer) (int, error) {
	decl, distFn, _ := s.AppendShaderDecl(nil)
	n, err := io.WriteString(w, shaderHeader)
	if err != nil {
		return n, err
	}
	ngot, err := w.Write(decl)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = fmt.Fprintf(w, `
layout(local_size_x = 1, local_size_y = 1, local_size_z = 1) in;

// Input: 3D positions at which to evaluate the distance field.
layout(rgba32f, binding = 0) uniform readonly image2D in_positions;
// Output: distance per position.
layout(r32f, binding = 1) uniform writeonly image2D out_distances;

void main() {
	ivec2 idx = ivec2(gl_GlobalInvocationID.xy);
	vec3 p = imageLoad(in_positions, idx).rgb;
	imageStore(out_distances, idx, vec4(%s(p)));
}
`, distFn)
	n += ngot
	return n, err
}
