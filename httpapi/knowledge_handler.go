package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/korylprince/knowledge-chatbot/api"
	"github.com/korylprince/knowledge-chatbot/chatbot"
)

//agentErrorMessage is returned in the body of a failed conversation turn
const agentErrorMessage = "Could not answer the question"

//POST /knowledge/get-conv
func handleGetConversation(agent *chatbot.Agent) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		var req *chatbot.ConvRequest
		d := json.NewDecoder(r.Body)

		err := d.Decode(&req)
		if err != nil || req == nil {
			return handleError(http.StatusBadRequest, fmt.Errorf("Could not decode json: %v", err))
		}

		if strings.TrimSpace(req.PromptInput) == "" {
			return handleError(http.StatusBadRequest, errors.New("prompt_input empty"))
		}

		histories := req.Histories
		if histories == nil {
			histories = []chatbot.HistoryEntry{}
		}

		user := r.Context().Value(api.UserKey).(*api.User)

		answer, err := agent.Run(r.Context(), user.Dataset(), req.PromptInput, histories)
		if err != nil {
			//the turn failed but the request was valid
			return &handlerResponse{Code: http.StatusOK, Body: &chatbot.ConvResponse{
				Status:    http.StatusInternalServerError,
				Type:      chatbot.AnswerText,
				Histories: histories,
				Error:     agentErrorMessage,
			}, Err: fmt.Errorf("Could not run agent for org %s: %w", user.OrgName, err)}
		}

		return &handlerResponse{Code: http.StatusOK, Body: &chatbot.ConvResponse{
			Status:    http.StatusOK,
			Type:      answer.Type,
			Content:   answer.Content,
			Histories: answer.Histories,
		}}
	}
}
