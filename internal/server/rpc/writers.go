package rpc

import (
	"encoding/json"
	"net/http"
)

func write(w http.ResponseWriter, msg *RPCResponse) error {
	data, err := json.Marshal(msg)
	if err != nil {
		data, _ = json.Marshal(NewError(InternalError()))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, werr := w.Write(data); werr != nil {
		return werr
	}
	return err
}

func WriteError(w http.ResponseWriter, errm *Error) error {
	return write(w, NewError(errm))
}

func WriteResponse(w http.ResponseWriter, response *RPCResponse) error {
	return write(w, response)
}
