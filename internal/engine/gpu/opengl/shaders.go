package opengl

// Uniform block binding points.
const (
	cameraBinding = 0
	masksBinding  = 1
)

var samplerNames = [...]string{
	"uColor", "uMetallic", "uSpecular", "uRoughness",
	"uAO", "uNormal", "uAlpha", "uEmissive",
}

const vertexSource = `#version 410 core

layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec4 aColor;
layout(location = 2) in vec3 aNormal;
layout(location = 3) in vec3 aTangent;
layout(location = 4) in vec2 aUV;
layout(location = 5) in mat4 aInstance;

layout(std140) uniform Camera {
    mat4 projection;
    mat4 view;
    vec4 front;
};

out vec4 vColor;
out vec3 vNormal;
out vec3 vTangent;
out vec2 vUV;

void main() {
    vec4 world = aInstance * vec4(aPosition, 1.0);
    gl_Position = projection * view * world;
    // The projection writes depth in [0, 1]; GL clips z against [-w, w].
    gl_Position.z = gl_Position.z * 2.0 - gl_Position.w;

    mat3 model = mat3(aInstance);
    vNormal = normalize(transpose(inverse(model)) * aNormal);
    vTangent = normalize(model * aTangent);
    vColor = aColor;
    vUV = aUV;
}
`

const fragmentSource = `#version 410 core

in vec4 vColor;
in vec3 vNormal;
in vec3 vTangent;
in vec2 vUV;

layout(std140) uniform Camera {
    mat4 projection;
    mat4 view;
    vec4 front;
};

layout(std140) uniform AutoTextureMasks {
    vec4 mColor;
    vec4 mMetallic;
    vec4 mSpecular;
    vec4 mRoughness;
    vec4 mAO;
    vec4 mNormal;
    vec4 mAlpha;
    vec4 mEmissive;
};

uniform sampler2D uColor;
uniform sampler2D uMetallic;
uniform sampler2D uSpecular;
uniform sampler2D uRoughness;
uniform sampler2D uAO;
uniform sampler2D uNormal;
uniform sampler2D uAlpha;
uniform sampler2D uEmissive;

out vec4 outColor;

// scalar reads the masked channels of a texel, averaged. An empty mask reads red.
float scalar(vec4 texel, vec4 mask) {
    float n = dot(mask, vec4(1.0));
    return n > 0.0 ? dot(texel, mask) / n : texel.r;
}

vec3 masked(vec4 texel, vec4 mask, vec3 fallback) {
    vec3 m = mask.rgb;
    return texel.rgb * m + fallback * (vec3(1.0) - m);
}

void main() {
    float alpha = scalar(texture(uAlpha, vUV), mAlpha);
    if (alpha < 0.1) {
        discard;
    }

    vec3 base = masked(texture(uColor, vUV), mColor, vec3(0.5)) * vColor.rgb;
    float ao = scalar(texture(uAO, vUV), mAO);
    float roughness = scalar(texture(uRoughness, vUV), mRoughness);
    float specular = scalar(texture(uSpecular, vUV), mSpecular);
    float metallic = scalar(texture(uMetallic, vUV), mMetallic);
    vec3 emissive = masked(texture(uEmissive, vUV), mEmissive, vec3(0.0));

    vec3 n = normalize(vNormal);
    vec3 t = normalize(vTangent - n * dot(n, vTangent));
    vec3 b = cross(n, t);
    vec3 tn = masked(texture(uNormal, vUV), mNormal, vec3(0.5, 0.5, 1.0)) * 2.0 - 1.0;
    n = normalize(mat3(t, b, n) * tn);

    vec3 viewDir = normalize(front.xyz);
    float diffuse = max(dot(-viewDir, n), 0.0);
    // Headlight: light and eye share a direction, so the half vector is -viewDir.
    float gloss = exp2(10.0 * (1.0 - roughness) + 1.0);
    float spec = pow(diffuse, gloss) * specular;

    vec3 albedo = mix(base, vec3(0.0), metallic);
    vec3 f0 = mix(vec3(0.04), base, metallic);
    vec3 color = (0.3 + diffuse) * albedo * ao + f0 * spec + emissive;
    outColor = vec4(color, alpha);
}
`
