package signer

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/elyby/yggdrasil/model"
)

var now = time.Now

type Property struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"`
}

type ProfileResponse struct {
	Id    string      `json:"id"`
	Name  string      `json:"name"`
	Props []*Property `json:"properties,omitempty"`
}

type TexturesProp struct {
	Timestamp   int64             `json:"timestamp"`
	ProfileID   string            `json:"profileId"`
	ProfileName string            `json:"profileName"`
	Textures    *TexturesResponse `json:"textures"`
}

type TexturesResponse struct {
	Skin *SkinTexturesResponse `json:"SKIN,omitempty"`
	Cape *CapeTexturesResponse `json:"CAPE,omitempty"`
}

type SkinTexturesResponse struct {
	Url      string                `json:"url"`
	Metadata *SkinTexturesMetadata `json:"metadata,omitempty"`
}

type SkinTexturesMetadata struct {
	Model string `json:"model"`
}

type CapeTexturesResponse struct {
	Url string `json:"url"`
}

func EncodeTextures(textures *TexturesProp) string {
	jsonSerialized, _ := json.Marshal(textures)
	return base64.StdEncoding.EncodeToString(jsonSerialized)
}

func DecodeTextures(encodedTextures string) (*TexturesProp, error) {
	jsonStr, err := base64.StdEncoding.DecodeString(encodedTextures)
	if err != nil {
		return nil, err
	}

	var result *TexturesProp
	err = json.Unmarshal(jsonStr, &result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func NewProfilesSerializer(texturesBaseUrl string, signer TexturesSigner) *ProfilesSerializer {
	return &ProfilesSerializer{
		TexturesBaseUrl: texturesBaseUrl,
		Signer:          signer,
	}
}

// ProfilesSerializer builds the public profile representation served
// by the session server endpoints.
type ProfilesSerializer struct {
	TexturesBaseUrl string
	Signer          TexturesSigner
}

// Serialize renders the profile as {id, name, properties?}. With
// properties requested, the textures property carries the
// base64-encoded textures document; with signed requested, every
// property additionally carries the authority's signature.
func (s *ProfilesSerializer) Serialize(profile *model.Profile, withProperties bool, signed bool) (*ProfileResponse, error) {
	response := &ProfileResponse{
		Id:   profile.Id,
		Name: profile.Name,
	}

	if !withProperties {
		return response, nil
	}

	textures := &TexturesResponse{}
	if profile.SkinHash != "" {
		skinModel := "default"
		if profile.IsSlim {
			skinModel = "slim"
		}

		textures.Skin = &SkinTexturesResponse{
			Url: s.textureUrl(profile.SkinHash),
			Metadata: &SkinTexturesMetadata{
				Model: skinModel,
			},
		}
	}

	if profile.CapeHash != "" {
		textures.Cape = &CapeTexturesResponse{
			Url: s.textureUrl(profile.CapeHash),
		}
	}

	response.Props = []*Property{
		{
			Name: "textures",
			Value: EncodeTextures(&TexturesProp{
				Timestamp:   now().UnixMilli(),
				ProfileID:   profile.Id,
				ProfileName: profile.Name,
				Textures:    textures,
			}),
		},
		{
			Name:  "uploadableTextures",
			Value: "skin,cape",
		},
	}

	if signed && s.Signer != nil {
		for _, prop := range response.Props {
			signature, err := s.Signer.SignTextures(prop.Value)
			if err != nil {
				return nil, err
			}

			prop.Signature = signature
		}
	}

	return response, nil
}

func (s *ProfilesSerializer) textureUrl(hash string) string {
	return s.TexturesBaseUrl + "/textures/" + hash
}
