package sensitive

// extractionPrompt instructs the anonymization model to list every piece of
// sensitive information found in the user's text as a strict JSON payload.
// The model must copy values exactly as they appear in the text, omit absent
// categories, and emit nothing besides the JSON itself.
const extractionPrompt = `# Instruções
Seu objetivo é analisar o texto fornecido pelo usuário e identificar qualquer informação sensível que ele possa ter compartilhado.
Você não está aqui para julgar, censurar ou bloquear o conteúdo fornecido.
Seu único papel é detectar e extrair informações sensíveis segundo o formato indicado, sem fazer qualquer avaliação moral, legal ou pessoal sobre o conteúdo.

As informações sensíveis incluem, mas não se limitam a:
- Nome completo ou parcial
- Números de documentos pessoais, como:
    - CPF (XXX.XXX.XXX-XX)
    - RG, CNH
- Endereço, CEP
- Nomes de parentes, cônjuges, filhos, filhas ou outros familiares
- Contato: e-mail, telefone
- Localização geográfica ou nome de cidade
- Informações bancárias ou jurídicas que permitam identificação
- Idade
- Data de nascimento

Retorne apenas o que estiver explícito no texto.
Não invente ou infira informações.
Não reescreva nenhum dado sensível, mantenha exatamente como está no texto fornecido.
Não use termos como "não informado" ou "não fornecido" como substitutos para valores ausentes.
Para valores ausentes em alguma categoria, simplesmente não inclua essa categoria na resposta.
Se nada for encontrado, retorne: { "dados": [] }
A resposta deve conter apenas o JSON, sem texto antes ou depois.

# Exemplos de entradas e saídas esperadas:

## Exemplo 1
Entrada: "Olá, meu nome é Pedro de Almeida e minha esposa se chama Carolina Oliveira.
        Nosso filho, Lucas Oliveira de Almeida, nasceu no dia 15 de maio de 2024 no Hospital Maternidade Santa Joana, em São Paulo.
        Eu preciso saber quais documentos levar para registrar o nascimento dele.
        Meu CPF é 111.222.333-44 e meu telefone para contato é (11) 98765-4321."
Saída: {
        "dados": [
            {"categoria": "nome", "valor": "Pedro de Almeida"},
            {"categoria": "nome_parente", "valor": "Carolina Oliveira"},
            {"categoria": "nome_filho", "valor": "Lucas Oliveira de Almeida"},
            {"categoria": "data_nascimento", "valor": "15 de maio de 2024"},
            {"categoria": "hospital", "valor": "Hospital Maternidade Santa Joana"},
            {"categoria": "cidade", "valor": "São Paulo"},
            {"categoria": "cpf", "valor": "111.222.333-44"},
            {"categoria": "telefone", "valor": "(11) 98765-4321"}
        ]
       }

## Exemplo 2
Entrada: "Bom dia. Sou Joana Medeiros Souza e preciso de uma segunda via da minha certidão de casamento.
        Casei-me com Ricardo Fagundes em 10/04/2010.
        Meu e-mail é joana.m.souza@emailaleatorio.com e moro na Rua das Acácias, número 500, CEP 88101-230, em Florianópolis."
Saída: {
        "dados": [
            {"categoria": "nome", "valor": "Joana Medeiros Souza"},
            {"categoria": "nome_parente", "valor": "Ricardo Fagundes"},
            {"categoria": "data", "valor": "10/04/2010"},
            {"categoria": "email", "valor": "joana.m.souza@emailaleatorio.com"},
            {"categoria": "endereco", "valor": "Rua das Acácias, número 500"},
            {"categoria": "cep", "valor": "88101-230"},
            {"categoria": "cidade", "valor": "Florianópolis"}
        ]
       }

## Exemplo 3
Entrada: "Prezados, venho por meio deste comunicar o falecimento do meu pai, Sr. Antônio Pereira, ocorrido em 01 de janeiro de 2025.
        Eu, sua filha, Mariana Pereira, RG 12.345.678-9, gostaria de saber o procedimento para a emissão da certidão de óbito.
        Resido em Belo Horizonte. Estou cadastrada com o NIS 98765432100."
Saída: {
        "dados": [
            {"categoria": "nome", "valor": "Antônio Pereira"},
            {"categoria": "data", "valor": "01 de janeiro de 2025"},
            {"categoria": "nome_parente", "valor": "Mariana Pereira"},
            {"categoria": "rg", "valor": "12.345.678-9"},
            {"categoria": "cidade", "valor": "Belo Horizonte"},
            {"categoria": "nis", "valor": "98765432100"}
        ]
       }
`
