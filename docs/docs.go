// Package docs registra la definición OpenAPI servida en /swagger/*.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {"tags": ["system"], "summary": "Health check", "responses": {"200": {"description": "ok"}}}
        },
        "/me/profile": {
            "get": {"tags": ["profiles"], "summary": "Perfil del usuario autenticado", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "unauthorized"}}},
            "patch": {"tags": ["profiles"], "summary": "Actualizar perfil", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "invalid input"}, "404": {"description": "profile not found"}}}
        },
        "/me/device-token": {
            "put": {"tags": ["profiles"], "summary": "Registrar device token para push", "consumes": ["application/json"], "responses": {"204": {"description": "No Content"}}}
        },
        "/me/reminder": {
            "get": {"tags": ["medicines"], "summary": "Recordatorio de dosis actual", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "401": {"description": "unauthorized"}}}
        },
        "/medicines": {
            "get": {"tags": ["medicines"], "summary": "Listar medicamentos", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["medicines"], "summary": "Crear medicamento", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Created"}, "400": {"description": "nome and dose are required"}, "403": {"description": "forbidden"}}}
        },
        "/medicines/{medicineID}": {
            "patch": {"tags": ["medicines"], "summary": "Actualizar medicamento", "parameters": [{"type": "integer", "name": "medicineID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "medicine not found"}}},
            "delete": {"tags": ["medicines"], "summary": "Borrar medicamento", "parameters": [{"type": "integer", "name": "medicineID", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}, "403": {"description": "forbidden"}}}
        },
        "/medicines/{medicineID}/confirm-dose": {
            "post": {"tags": ["medicines"], "summary": "Confirmar dosis", "parameters": [{"type": "integer", "name": "medicineID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "confirmation in progress"}}}
        },
        "/consultations": {
            "get": {"tags": ["consultations"], "summary": "Listar consultas", "parameters": [{"type": "string", "name": "from", "in": "query"}, {"type": "string", "name": "to", "in": "query"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["consultations"], "summary": "Agendar consulta", "consumes": ["application/json"], "responses": {"201": {"description": "Created"}, "400": {"description": "invalid input"}}}
        },
        "/caretaker/elders": {
            "get": {"tags": ["caretakers"], "summary": "Idosos vinculables", "responses": {"200": {"description": "OK"}, "403": {"description": "not a carer"}}}
        },
        "/caretaker/elders/{elderID}/link": {
            "post": {"tags": ["caretakers"], "summary": "Vincular idoso", "parameters": [{"type": "string", "name": "elderID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "already linked"}, "422": {"description": "schema mismatch"}}}
        },
        "/caretaker/elders/{elderID}/unlink": {
            "post": {"tags": ["caretakers"], "summary": "Desvincular idoso", "parameters": [{"type": "string", "name": "elderID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "forbidden"}}}
        },
        "/caretaker/elders/{elderID}/toggle": {
            "post": {"tags": ["caretakers"], "summary": "Alternar vínculo", "parameters": [{"type": "string", "name": "elderID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/pharmacies": {
            "get": {"tags": ["catalog"], "summary": "Listar farmacias", "parameters": [{"type": "string", "name": "q", "in": "query"}], "responses": {"200": {"description": "OK"}}}
        },
        "/store": {
            "get": {"tags": ["catalog"], "summary": "Buscar en la tienda", "parameters": [{"type": "string", "name": "q", "in": "query"}, {"type": "string", "name": "pharmacy_id", "in": "query"}, {"type": "integer", "name": "limit", "in": "query"}], "responses": {"200": {"description": "OK"}, "400": {"description": "invalid limit"}}}
        },
        "/store/{itemID}": {
            "get": {"tags": ["catalog"], "summary": "Detalle de un medicamento de la tienda", "parameters": [{"type": "string", "name": "itemID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}}
        },
        "/home": {
            "get": {"tags": ["dashboard"], "summary": "Dashboard inicial", "responses": {"200": {"description": "OK"}}}
        },
        "/ws": {
            "get": {"tags": ["realtime"], "summary": "Stream de recordatorios (websocket)", "responses": {"101": {"description": "Switching Protocols"}, "401": {"description": "unauthorized"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Vida Melhor API",
	Description:      "Recordatorios de medicamentos, consultas y vínculo cuidador/idoso.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
