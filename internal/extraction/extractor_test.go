package extraction

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safe2go/support-import/internal/domain"
)

const operator = "Ana Souza"

func extract(t *testing.T, text string) []Candidate {
	t.Helper()
	return New(nil).Extract(text, operator)
}

func TestExtractEmptyInput(t *testing.T) {
	got := extract(t, "")
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestExtractGarbageOnly(t *testing.T) {
	assert.Empty(t, extract(t, "xyz\nabc\n12\n"))
}

func TestExtractMultiRecordScenario(t *testing.T) {
	text := "SGSS-N012 Erro ao gerar boleto AVLA\n" +
		"em atendimento\n" +
		"WEB-732303 Falha de integração ESSOR\n" +
		"concluído\n"

	got := extract(t, text)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "SGSS-N012", first.ExternalID)
	assert.Equal(t, "Erro ao gerar boleto AVLA", first.Title)
	assert.Equal(t, domain.TicketStatusInDevelopment, first.Status)
	require.NotNil(t, first.Insurer)
	assert.Equal(t, "AVLA", *first.Insurer)
	assert.Equal(t, "AVLA", *first.Category)
	assert.Equal(t, "em atendimento", first.Description)

	second := got[1]
	assert.Equal(t, "WEB-732303", second.ExternalID)
	assert.Equal(t, "Falha de integração ESSOR", second.Title)
	// "concluído" has 9 characters, below the continuation threshold.
	assert.Equal(t, domain.TicketStatusPending, second.Status)
	require.NotNil(t, second.Insurer)
	assert.Equal(t, "ESSOR", *second.Insurer)
	assert.Equal(t, "Importado via OCR da imagem", second.Description)
}

func TestExtractLookAheadConsumesTitleLine(t *testing.T) {
	got := extract(t, "SGSS-N012\nErro ao gerar boleto")
	require.Len(t, got, 1)
	assert.Equal(t, "SGSS-N012", got[0].ExternalID)
	assert.Equal(t, "Erro ao gerar boleto", got[0].Title)
	assert.Equal(t, "Importado via OCR da imagem", got[0].Description)
	assert.Equal(t, domain.TicketStatusPending, got[0].Status)
	assert.Equal(t, operator, got[0].Responsible)
	assert.Equal(t, domain.TicketPriorityMedium, got[0].Priority)
}

func TestExtractLookAheadScansConsumedLine(t *testing.T) {
	got := extract(t, "SGSS-N012\nErro ao gerar boleto DAYCOVAL")
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Insurer)
	assert.Equal(t, "DAYCOVAL", *got[0].Insurer)
}

func TestExtractLookAheadSkipsIdentifierLine(t *testing.T) {
	got := extract(t, "SGSS-N012\nWEB-732303 Falha de integração")
	require.Len(t, got, 1)
	assert.Equal(t, "WEB-732303", got[0].ExternalID)
	assert.Equal(t, "Falha de integração", got[0].Title)
}

func TestExtractNonClobber(t *testing.T) {
	got := extract(t, "SGSS-N012 Erro de boleto\naguardando suporte\ntexto irrelevante qualquer")
	require.Len(t, got, 1)
	assert.Equal(t, "Erro de boleto", got[0].Title)
	assert.Equal(t, domain.TicketStatusWaitingResponse, got[0].Status)
	assert.Equal(t, "aguardando suporte", got[0].Description)
}

func TestExtractPatternPriority(t *testing.T) {
	got := extract(t, "WEB-732303 SGSS-N012 Cadastro duplicado")
	require.Len(t, got, 1)
	assert.Equal(t, "SGSS-N012", got[0].ExternalID)
	assert.Equal(t, "WEB-732303 Cadastro duplicado", got[0].Title)
}

func TestExtractCanonicalIdentifier(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"lower case with space", "sgss n012 Erro de login no portal", "SGSS-N012"},
		{"no separator", "SGSSN012 Erro de login no portal", "SGSSN012"},
		{"pattern B with space", "web 732303 Erro de login no portal", "WEB-732303"},
		{"pattern C", "AB12-345 Erro de login no portal", "AB12-345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract(t, tt.line)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].ExternalID)
			assert.Equal(t, "Erro de login no portal", got[0].Title)
		})
	}
}

func TestExtractTitleCleanup(t *testing.T) {
	got := extract(t, "| SGSS-N012 |  Erro   ao gerar | boleto |")
	require.Len(t, got, 1)
	assert.Equal(t, "Erro ao gerar boleto", got[0].Title)
}

func TestExtractNoiseFloor(t *testing.T) {
	got := extract(t, "SGSS-N012\nab\nErro ao gerar boleto")
	require.Len(t, got, 1)
	assert.Equal(t, "Erro ao gerar boleto", got[0].Title)
}

func TestExtractFiltersInvalidCandidates(t *testing.T) {
	got := extract(t, "SGSS-N013 Erro\nWEB-732303 Falha de integração\nSGSS-N014")
	require.Len(t, got, 1)
	assert.Equal(t, "WEB-732303", got[0].ExternalID)
}

func TestExtractShortTitleReplacedByContinuation(t *testing.T) {
	got := extract(t, "SGSS-N015 Erro 500\nFalha ao emitir apólice no portal")
	require.Len(t, got, 1)
	assert.Equal(t, "Falha ao emitir apólice no portal", got[0].Title)
	assert.Equal(t, "Importado via OCR da imagem", got[0].Description)
}

func TestExtractStatusKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.TicketStatus
	}{
		{"waiting support", "SGSS-N016 Ajuste de tarifa aguardando suporte", domain.TicketStatusWaitingResponse},
		{"waiting configuration without accents", "SGSS-N016 Ajuste de tarifa AGUARDANDO CONFIGURACAO", domain.TicketStatusWaitingConfiguration},
		{"in progress glued", "SGSS-N016 Ajuste de tarifa ematendimento", domain.TicketStatusInDevelopment},
		{"completed without accent", "SGSS-N016 Ajuste de tarifa concluido", domain.TicketStatusCompleted},
		{"completed on continuation line", "SGSS-N016 Ajuste de tarifa\nchamado já concluído pelo time", domain.TicketStatusCompleted},
		{"configuration on continuation line", "SGSS-N016 Ajuste de tarifa\naguardando configuração do cliente", domain.TicketStatusWaitingConfiguration},
		{"no keyword", "SGSS-N016 Ajuste de tarifa", domain.TicketStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract(t, tt.text)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Status)
		})
	}
}

func TestExtractResponsible(t *testing.T) {
	got := extract(t, "SGSS-N019 Erro de boleto Lucas Valentim em atendimento")
	require.Len(t, got, 1)
	assert.Equal(t, "Lucas Valentim", got[0].Responsible)
	assert.Equal(t, domain.TicketStatusInDevelopment, got[0].Status)

	for line, want := range map[string]struct {
		name   string
		status domain.TicketStatus
	}{
		"SGSS-N019 Erro de boleto Lucas Valentim Em Atendimento":  {"Lucas Valentim", domain.TicketStatusInDevelopment},
		"SGSS-N019 Erro de boleto Pedro Concluído":                {"Pedro", domain.TicketStatusCompleted},
		"SGSS-N019 Erro de boleto Maria Alves Aguardando Suporte": {"Maria Alves", domain.TicketStatusWaitingResponse},
		"SGSS-N019 Erro de boleto Pedro Henrique Souza":           {"Pedro Henrique Souza", domain.TicketStatusPending},
	} {
		got = extract(t, line)
		require.Len(t, got, 1, line)
		assert.Equal(t, want.name, got[0].Responsible, line)
		assert.Equal(t, want.status, got[0].Status, line)
	}

	got = extract(t, "SGSS-N019 Erro de boleto para joão")
	require.Len(t, got, 1)
	assert.Equal(t, "joão", got[0].Responsible)

	got = extract(t, "SGSS-N019 Erro de boleto Marianas")
	require.Len(t, got, 1)
	assert.Equal(t, operator, got[0].Responsible)

	got = New(nil).Extract("SGSS-N019 Erro de boleto", "  ")
	require.Len(t, got, 1)
	assert.Equal(t, "Não atribuído", got[0].Responsible)
}

func TestExtractOrganization(t *testing.T) {
	got := extract(t, "SGSS-N020 Erro no cadastro avla")
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Insurer)
	assert.Equal(t, "AVLA", *got[0].Insurer)

	got = extract(t, "SGSS-N020 Erro no cadastro AVLAX")
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Insurer)
	assert.Nil(t, got[0].Category)
}

func TestExtractTruncates(t *testing.T) {
	text := "SGSS-N021 " + strings.Repeat("á", 250) + "\n" + strings.Repeat("b", 600)
	got := extract(t, text)
	require.Len(t, got, 1)
	assert.Equal(t, 200, runeLen(got[0].Title))
	assert.Equal(t, 500, runeLen(got[0].Description))
}

func TestExtractKeepsRepeatedIdentifiers(t *testing.T) {
	got := extract(t, "SGSS-N012 Erro ao gerar boleto\nSGSS-N012 Erro ao gerar boleto")
	require.Len(t, got, 2)
	assert.Equal(t, got[0], got[1])
}

func TestExtractHandlesCRLF(t *testing.T) {
	got := extract(t, "SGSS-N012 Erro ao gerar boleto\r\nem atendimento\r\n")
	require.Len(t, got, 1)
	assert.Equal(t, domain.TicketStatusInDevelopment, got[0].Status)
}

func TestExtractIsIdempotent(t *testing.T) {
	text := "SGSS-N012 Erro ao gerar boleto AVLA\nem atendimento\nWEB-732303 Falha de integração ESSOR\n"
	ex := New(nil)
	assert.Equal(t, ex.Extract(text, operator), ex.Extract(text, operator))
}

func TestExtractFilteringInvariant(t *testing.T) {
	text := strings.Join([]string{
		"Relatório de chamados",
		"SGSS-N001 ok",
		"SGSS-N002",
		"WEB-100200 " + strings.Repeat("x", 300),
		strings.Repeat("descrição longa ", 60),
		"AB12-345 |  |",
		"SGSS-N003 Falha de sincronização ESSOR",
		"zz",
	}, "\n")

	for _, c := range extract(t, text) {
		assert.NotEmpty(t, c.ExternalID)
		assert.GreaterOrEqual(t, runeLen(c.Title), 5)
		assert.LessOrEqual(t, runeLen(c.Title), 200)
		assert.LessOrEqual(t, runeLen(c.Description), 500)
		assert.NotEqual(t, "Sem título", c.Title)
	}
}

func TestExtractConcurrentCalls(t *testing.T) {
	ex := New(nil)
	text := "SGSS-N012 Erro ao gerar boleto AVLA\nem atendimento"
	want := ex.Extract(text, operator)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, ex.Extract(text, operator))
		}()
	}
	wg.Wait()
}

func TestExtractFrom(t *testing.T) {
	ex := New(nil)

	_, err := ex.ExtractFrom(nil, operator)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ex.ExtractFrom(bytes.NewReader([]byte{0xff, 0xfe, 0x00}), operator)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	got, err := ex.ExtractFrom(strings.NewReader("SGSS-N012 Erro ao gerar boleto"), operator)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestCandidateTicket(t *testing.T) {
	got := extract(t, "SGSS-N012 Erro ao gerar boleto AVLA")
	require.Len(t, got, 1)

	ticket := got[0].Ticket()
	assert.Equal(t, "SGSS-N012", ticket.ExternalID)
	assert.Equal(t, "Erro ao gerar boleto AVLA", ticket.Title)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	require.NotNil(t, ticket.Insurer)
	assert.Equal(t, "AVLA", *ticket.Insurer)
}
