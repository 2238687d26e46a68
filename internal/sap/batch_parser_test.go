package sap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const batchResponseSuccess = "--batchresp_1\r\n" +
	"Content-Type: multipart/mixed; boundary=changesetresp_1\r\n" +
	"\r\n" +
	"--changesetresp_1\r\n" +
	"Content-Type: application/http\r\n" +
	"\r\n" +
	"HTTP/1.1 201 Created\r\n" +
	"Content-Type: application/json\r\n" +
	"\r\n" +
	"{\"DocEntry\":500,\"DocNum\":1500,\"CardCode\":\"C001\"}\r\n" +
	"--changesetresp_1\r\n" +
	"Content-Type: application/http\r\n" +
	"\r\n" +
	"HTTP/1.1 201 Created\r\n" +
	"\r\n" +
	"{\"DocEntry\":900,\"DocNum\":2900}\r\n" +
	"--changesetresp_1\r\n" +
	"Content-Type: application/http\r\n" +
	"\r\n" +
	"HTTP/1.1 201 Created\r\n" +
	"\r\n" +
	"{\"DocEntry\":901,\"DocNum\":2901}\r\n" +
	"--changesetresp_1--\r\n" +
	"--batchresp_1--\r\n"

const batchResponseWithError = "--batchresp_2\r\n" +
	"\r\n" +
	"HTTP/1.1 201 Created\r\n" +
	"\r\n" +
	"{\"DocEntry\":500,\"DocNum\":1500}\r\n" +
	"--batchresp_2\r\n" +
	"\r\n" +
	"HTTP/1.1 400 Bad Request\r\n" +
	"\r\n" +
	"{\"error\":{\"code\":-5002,\"message\":{\"lang\":\"en-us\",\"value\":\"Account 5010 is blocked for posting\"}}}\r\n" +
	"--batchresp_2--\r\n"

func TestParseBatchResponseSuccess(t *testing.T) {
	result := ParseBatchResponse(batchResponseSuccess)

	require.True(t, result.OK())
	require.NotNil(t, result.Invoice)
	assert.Equal(t, int64(500), result.Invoice.DocEntry)
	assert.Equal(t, int64(1500), result.Invoice.DocNum)

	require.Len(t, result.Payments, 2)
	assert.Equal(t, int64(900), result.Payments[0].DocEntry)
	assert.Equal(t, int64(901), result.Payments[1].DocEntry)
	assert.Empty(t, result.Errors)
}

func TestParseBatchResponseCollectsErrors(t *testing.T) {
	result := ParseBatchResponse(batchResponseWithError)

	assert.False(t, result.OK())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Account 5010 is blocked for posting", result.Errors[0])

	// the successful invoice fragment is still extracted
	require.NotNil(t, result.Invoice)
	assert.Equal(t, int64(500), result.Invoice.DocEntry)
	assert.Empty(t, result.Payments)
}

func TestParseBatchResponseErrorWithoutMessage(t *testing.T) {
	raw := "preamble\r\nHTTP/1.1 500 Internal Server Error\r\n\r\nnot json at all\r\n"
	result := ParseBatchResponse(raw)

	assert.False(t, result.OK())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "status 500")
}

func TestParseBatchResponseEmptyInput(t *testing.T) {
	result := ParseBatchResponse("")
	assert.False(t, result.OK())
	assert.Nil(t, result.Invoice)
}

func TestParseBatchResponseTolerantOfWhitespace(t *testing.T) {
	raw := "--b\n\nHTTP/1.1 201 Created\n\n\n  {\"DocEntry\":7,\"DocNum\":70}\n\n--b--"
	result := ParseBatchResponse(raw)

	require.True(t, result.OK())
	require.NotNil(t, result.Invoice)
	assert.Equal(t, int64(7), result.Invoice.DocEntry)
}

func TestFirstJSONObjectBracesInsideStrings(t *testing.T) {
	s := `noise {"message":"left { brace","ok":true} trailing`
	assert.Equal(t, `{"message":"left { brace","ok":true}`, firstJSONObject(s))
}
