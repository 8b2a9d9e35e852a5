package service

import (
	"encoding/json"
	"fmt"
	"strconv"

	"ContentStudio-server/models"
)

// mockCompletion returns canned JSON shaped like a real completion for kind.
func mockCompletion(kind string, vars map[string]string) string {
	var v any
	switch kind {
	case "temas":
		n, _ := strconv.Atoi(vars["quantidade"])
		if n <= 0 {
			n = DefaultThemeCount
		}
		temas := make([]ThemeSuggestion, n)
		for i := range temas {
			temas[i] = ThemeSuggestion{
				Titulo:    fmt.Sprintf("%s: ideia %d", vars["topico"], i+1),
				Descricao: fmt.Sprintf("Sugestão de exemplo %d gerada em modo de simulação.", i+1),
			}
		}
		v = map[string]any{"temas": temas}

	case "roteiro":
		tema := vars["tema"]
		v = Script{
			Titulo:  tema,
			Roteiro: fmt.Sprintf("Você já parou para pensar em %s? Neste vídeo vamos direto ao ponto. Fique até o final!", tema),
			Cenas: []Scene{
				{Ordem: 1, Texto: "Gancho inicial", Visual: "Close no apresentador"},
				{Ordem: 2, Texto: "Desenvolvimento", Visual: "Imagens ilustrativas"},
				{Ordem: 3, Texto: "Chamada para ação", Visual: "Texto na tela"},
			},
		}

	case "carrossel":
		tema := vars["tema"]
		n, _ := strconv.Atoi(vars["slides"])
		if n <= 0 {
			n = DefaultSlideCount
		}
		c := Carousel{
			Titulo:   tema,
			Legenda:  fmt.Sprintf("Tudo o que você precisa saber sobre %s.", tema),
			Hashtags: []string{"#conteudo", "#dicas"},
		}
		for i := 1; i <= n; i++ {
			c.Slides = append(c.Slides, slideMock(tema, i))
		}
		v = c

	default:
		v = map[string]any{}
	}

	b, _ := json.Marshal(v)
	return string(b)
}

func slideMock(tema string, i int) models.Slide {
	return models.Slide{
		Ordem:  i,
		Titulo: fmt.Sprintf("%s (%d)", tema, i),
		Texto:  fmt.Sprintf("Conteúdo de exemplo do slide %d.", i),
	}
}

// mockAudio is a single silent MPEG-1 Layer III frame.
var mockAudio = append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 413)...)

// mockVoicePrefix marks canned voice ids. They are never sent to ElevenLabs.
const mockVoicePrefix = "mock-"

var mockVoices = []Voice{
	{VoiceID: "mock-voice-1", Name: "Narrador (simulação)", Category: "premade"},
	{VoiceID: "mock-voice-2", Name: "Narradora (simulação)", Category: "premade"},
}
