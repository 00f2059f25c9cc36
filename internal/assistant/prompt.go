package assistant

import "strings"

// responsePrompt is the fixed template for answer generation. The model must
// answer only from the supplied context, in plain accessible language, and
// state explicitly when the context is insufficient instead of speculating.
const responsePrompt = `Você é um assistente especializado em fornecer respostas objetivas, claras e baseadas unicamente nas informações fornecidas.
Considere que as respostas serão fornecidas a cidadãos comuns, portanto utilize uma linguagem apropriada e de fácil entendimento.
Responda à questão com base exclusivamente no contexto abaixo:
{context}

---
Histórico da conversa:
{history}

---
Se a resposta não puder ser encontrada no contexto fornecido ou não houver evidências, informe claramente que a informação não está disponível.
Não invente ou especule sobre a resposta.
Pergunta: {question}
`

// buildPrompt fills the response template with the context block, the
// rendered conversation history and the (anonymized) question.
func buildPrompt(contextBlock string, history []Turn, question string) string {
	prompt := strings.ReplaceAll(responsePrompt, "{context}", contextBlock)
	prompt = strings.ReplaceAll(prompt, "{history}", renderHistory(history))
	prompt = strings.ReplaceAll(prompt, "{question}", question)
	return prompt
}

// renderHistory renders the conversation as alternating "Usuário:" and
// "Assistente:" lines.
func renderHistory(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, turn := range history {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch turn.Role {
		case RoleAssistant:
			sb.WriteString("Assistente: ")
		default:
			sb.WriteString("Usuário: ")
		}
		sb.WriteString(turn.Content)
	}
	return sb.String()
}
