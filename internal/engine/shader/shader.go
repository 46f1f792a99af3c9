// Package shader provides OpenGL shader compilation utilities.
package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Stage is one shader stage's source.
type Stage struct {
	Type   uint32 // gl.VERTEX_SHADER, gl.FRAGMENT_SHADER, ...
	Name   string
	Source string
}

// CompileProgram compiles a vertex and a fragment shader and links them.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	return Link(
		Stage{Type: gl.VERTEX_SHADER, Name: "vertex", Source: vertexSrc},
		Stage{Type: gl.FRAGMENT_SHADER, Name: "fragment", Source: fragmentSrc},
	)
}

// Link compiles every stage and links them into a program. Stage objects are
// deleted once linked; on failure nothing is left allocated.
func Link(stages ...Stage) (uint32, error) {
	program := gl.CreateProgram()
	for _, s := range stages {
		obj, err := compile(s)
		if err != nil {
			gl.DeleteProgram(program)
			return 0, err
		}
		gl.AttachShader(program, obj)
		// Flagged for deletion; freed when the program is.
		gl.DeleteShader(obj)
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		msg := infoLog(program, gl.GetProgramiv, gl.GetProgramInfoLog)
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", msg)
	}
	return program, nil
}

func compile(s Stage) (uint32, error) {
	obj := gl.CreateShader(s.Type)
	csource, free := gl.Strs(s.Source + "\x00")
	gl.ShaderSource(obj, 1, csource, nil)
	free()
	gl.CompileShader(obj)

	var status int32
	gl.GetShaderiv(obj, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		msg := infoLog(obj, gl.GetShaderiv, gl.GetShaderInfoLog)
		gl.DeleteShader(obj)
		return 0, fmt.Errorf("%s shader: %s", s.Name, msg)
	}
	return obj, nil
}

func infoLog(obj uint32,
	param func(uint32, uint32, *int32),
	read func(uint32, int32, *int32, *uint8),
) string {
	var n int32
	param(obj, gl.INFO_LOG_LENGTH, &n)
	if n == 0 {
		return "no info log"
	}
	buf := make([]byte, n+1)
	read(obj, n, nil, &buf[0])
	return gl.GoStr(&buf[0])
}

// BindUniformBlock attaches the named std140 block to a binding point.
// GLSL 4.10 has no binding layout qualifier, so this replaces it.
func BindUniformBlock(program uint32, name string, binding uint32) error {
	idx := gl.GetUniformBlockIndex(program, gl.Str(name+"\x00"))
	if idx == gl.INVALID_INDEX {
		return fmt.Errorf("uniform block %q not found in program %d", name, program)
	}
	gl.UniformBlockBinding(program, idx, binding)
	return nil
}

// BindSamplers assigns consecutive texture units, starting at 0, to the
// named sampler uniforms. Inactive samplers are skipped.
func BindSamplers(program uint32, names ...string) {
	gl.UseProgram(program)
	for unit, name := range names {
		if loc := GetUniform(program, name); loc >= 0 {
			gl.Uniform1i(loc, int32(unit))
		}
	}
	gl.UseProgram(0)
}

// GetUniform returns the uniform location for the given name, or -1 if the
// uniform is not found or inactive.
func GetUniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}
