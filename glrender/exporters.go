package glrender

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gshade"
	"github.com/soypat/gshade/glbuild"
	"github.com/soypat/gshade/glprog"
)

// DefaultExporters returns the exporters for every category of the state:
// transforms, material, lights, texture layers, fog and picking. Each is a
// no-op for uniforms the bound program does not declare, so they are safe
// to run in both traversal modes.
func DefaultExporters() []Exporter {
	return []Exporter{
		ExporterFunc(ExportTransforms),
		ExporterFunc(ExportMaterial),
		ExporterFunc(ExportLights),
		ExporterFunc(ExportTextures),
		ExporterFunc(ExportFog),
		ExporterFunc(ExportPicking),
	}
}

func ExportTransforms(prog *glprog.Program, s *gshade.State) {
	xf := s.Transforms()
	prog.SetMat4(glbuild.UniformModelMatrix, 0, xf.Model)
	prog.SetMat4(glbuild.UniformViewMatrix, 0, xf.View)
	prog.SetMat4(glbuild.UniformProjectionMatrix, 0, xf.Projection)
	if prog.Has(glbuild.UniformNormalMatrix, 0) {
		prog.SetMat3(glbuild.UniformNormalMatrix, 0, xf.NormalMatrix())
	}
}

func ExportMaterial(prog *glprog.Program, s *gshade.State) {
	m := s.Material()
	prog.SetVec3(glbuild.UniformMaterialBaseColor, 0, m.BaseColor)
	prog.SetVec3(glbuild.UniformMaterialSpecularColor, 0, m.SpecularColor)
	prog.SetFloat(glbuild.UniformMaterialSpecular, 0, m.Specular)
	prog.SetFloat(glbuild.UniformMaterialShininess, 0, m.Shininess)
	prog.SetFloat(glbuild.UniformMaterialEmit, 0, m.Emit)
	prog.SetFloat(glbuild.UniformMaterialAlpha, 0, m.Alpha)
}

// ExportLights exports the ambient color and every light. Spot cutoffs are
// exported as the cosine of the cone half-angle.
func ExportLights(prog *glprog.Program, s *gshade.State) {
	prog.SetVec3(glbuild.UniformAmbientColor, 0, s.Ambient())
	for i := 0; i < s.NumLights(); i++ {
		l := s.Light(i)
		prog.SetVec3(glbuild.UniformLightColor, i, l.Color)
		prog.SetVec3(glbuild.UniformLightPos, i, l.Position)
		prog.SetVec3(glbuild.UniformLightDir, i, l.Direction)
		prog.SetVec3(glbuild.UniformLightAttenuation, i, l.Attenuation)
		if l.Kind == gshade.LightSpot {
			prog.SetFloat(glbuild.UniformLightSpotCosCutoff, i, math32.Cos(l.SpotCutoff*math32.Pi/180))
			prog.SetFloat(glbuild.UniformLightSpotExponent, i, l.SpotExponent)
		}
	}
}

// ExportTextures binds layer i's texture to texture unit i.
func ExportTextures(prog *glprog.Program, s *gshade.State) {
	for i := 0; i < s.NumTextureLayers(); i++ {
		tl := s.TextureLayer(i)
		prog.BindTexture(i, i, glprog.Texture(tl.Texture))
		if tl.Matrix != nil {
			prog.SetMat4(glbuild.UniformLayerMatrix, i, *tl.Matrix)
		}
	}
}

func ExportFog(prog *glprog.Program, s *gshade.State) {
	f := s.Fog()
	prog.SetVec3(glbuild.UniformFogColor, 0, f.Color)
	prog.SetFloat(glbuild.UniformFogStart, 0, f.Start)
	prog.SetFloat(glbuild.UniformFogEnd, 0, f.End)
	prog.SetFloat(glbuild.UniformFogDensity, 0, f.Density)
}

func ExportPicking(prog *glprog.Program, s *gshade.State) {
	if !prog.Has(glbuild.UniformPickColor, 0) {
		return
	}
	c := s.PickColor()
	prog.SetVec3(glbuild.UniformPickColor, 0, ms3.Vec{X: c[0], Y: c[1], Z: c[2]})
}
