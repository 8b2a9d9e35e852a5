package service

import (
	"strconv"
	"strings"
)

const systemPrompt = "Você é um estrategista de conteúdo para redes sociais. " +
	"Responda sempre e somente com um objeto JSON válido, sem texto fora do JSON."

const defaultPromptTemas = `Sugira {quantidade} temas originais para vídeos curtos sobre o tópico "{topico}".
Idioma: {idioma}.
Formato: {"temas":[{"titulo":"...","descricao":"..."}]}`

const defaultPromptRoteiro = `Escreva um roteiro de vídeo de aproximadamente {duracao} segundos sobre o tema "{tema}".
Tom: {tom}. Idioma: {idioma}.
O campo "roteiro" deve conter apenas o texto a ser narrado.
Formato: {"titulo":"...","roteiro":"...","cenas":[{"ordem":1,"texto":"...","visual":"..."}]}`

const defaultPromptCarrossel = `Crie um carrossel para Instagram com {slides} slides sobre o tema "{tema}".
Tom: {tom}. Idioma: {idioma}.
Formato: {"titulo":"...","slides":[{"ordem":1,"titulo":"...","texto":"..."}],"legenda":"...","hashtags":["#..."]}`

// renderPrompt substitutes {name} placeholders. Unknown placeholders are left as is.
func renderPrompt(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
