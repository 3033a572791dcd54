package http

import (
	"net/http"

	c "github.com/d0ngw/dlcounter/common"
)

// RenderJSON 渲染JSON,状态码为200
func RenderJSON(w http.ResponseWriter, jsonData interface{}) {
	RenderStatusJSON(w, http.StatusOK, jsonData)
}

// RenderStatusJSON 使用指定的状态码渲染JSON
func RenderStatusJSON(w http.ResponseWriter, status int, jsonData interface{}) {
	data, err := c.JSON.Marshal(jsonData)
	if err != nil {
		c.Errorf("marshal %T fail,err:%v", jsonData, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		c.Warnf("write response fail,err:%v", err)
	}
}
