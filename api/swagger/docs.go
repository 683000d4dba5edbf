// Package swagger holds the generated OpenAPI document served at
// /swagger/doc.json in dev mode. Regenerate with:
//
//	swag init -g cmd/ponplan/main.go -o api/swagger --outputTypes go
package swagger

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
			"get": {
				"description": "Returns service health, version information and plugin health.",
				"produces": [
					"application/json"
				],
				"tags": [
					"system"
				],
				"summary": "Health check",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/server.HealthResponse"
						}
					}
				}
			}
		},
		"/plugins": {
			"get": {
				"description": "Returns all registered plugins with their metadata.",
				"produces": [
					"application/json"
				],
				"tags": [
					"system"
				],
				"summary": "List plugins",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"$ref": "#/definitions/server.PluginResponse"
							}
						}
					}
				}
			}
		},
		"/planner/plan": {
			"post": {
				"description": "Selects the splitter topology for a subscriber count and PON type, validates it and explains it.",
				"produces": [
					"application/json"
				],
				"tags": [
					"planner"
				],
				"summary": "Plan topology",
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Subscriber count and PON type",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/planner.PlanRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/planner.PlanResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			}
		},
		"/planner/rules": {
			"get": {
				"description": "Returns the loss, capacity and port tables the planner uses.",
				"produces": [
					"application/json"
				],
				"tags": [
					"planner"
				],
				"summary": "Planning rules",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/topology.RulesSnapshot"
						}
					}
				}
			}
		},
		"/planner/validate": {
			"post": {
				"description": "Rebuilds a plan from an explicit stage list and validates it against the loss budget and PON capacity.",
				"produces": [
					"application/json"
				],
				"tags": [
					"planner"
				],
				"summary": "Validate chain",
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Splitter chain",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/planner.ValidateRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/planner.ValidateResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			}
		},
		"/planner/validate/{device_id}": {
			"get": {
				"description": "Validates the splitter chain above a stored device.",
				"produces": [
					"application/json"
				],
				"tags": [
					"planner"
				],
				"summary": "Validate stored chain",
				"parameters": [
					{
						"type": "string",
						"description": "Device ID",
						"name": "device_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/planner.ValidateResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			}
		},
		"/planner/ports": {
			"post": {
				"description": "Computes free ports and utilization for the supplied devices.",
				"produces": [
					"application/json"
				],
				"tags": [
					"planner"
				],
				"summary": "Port allocation",
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Device snapshots",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/planner.DevicesRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/topology.PortAllocation"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			},
			"get": {
				"description": "Computes free ports and utilization over the stored inventory.",
				"produces": [
					"application/json"
				],
				"tags": [
					"planner"
				],
				"summary": "Stored port allocation",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/topology.PortAllocation"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			}
		},
		"/planner/attachments": {
			"post": {
				"description": "Ranks attachment points for a new subscriber over the supplied devices.",
				"produces": [
					"application/json"
				],
				"tags": [
					"planner"
				],
				"summary": "Attachment points",
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Device snapshots",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/planner.DevicesRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/topology.AttachmentRecommendation"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			},
			"get": {
				"description": "Ranks attachment points over the stored inventory.",
				"produces": [
					"application/json"
				],
				"tags": [
					"planner"
				],
				"summary": "Stored attachment points",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/topology.AttachmentRecommendation"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			}
		},
		"/inventory/devices": {
			"get": {
				"description": "Lists stored devices, optionally filtered by type.",
				"produces": [
					"application/json"
				],
				"tags": [
					"inventory"
				],
				"summary": "List devices",
				"parameters": [
					{
						"type": "string",
						"description": "Device type filter (olt, ms, subms, fdb, x2, customer)",
						"name": "type",
						"in": "query",
						"required": false
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"$ref": "#/definitions/models.PonDevice"
							}
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			},
			"post": {
				"description": "Stores a device under a parent of an allowed type.",
				"produces": [
					"application/json"
				],
				"tags": [
					"inventory"
				],
				"summary": "Create device",
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Device",
						"name": "device",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/inventory.CreateDeviceRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/models.PonDevice"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			}
		},
		"/inventory/devices/{id}": {
			"get": {
				"description": "Returns one stored device.",
				"produces": [
					"application/json"
				],
				"tags": [
					"inventory"
				],
				"summary": "Get device",
				"parameters": [
					{
						"type": "string",
						"description": "Device ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/models.PonDevice"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			},
			"delete": {
				"description": "Deletes a device without children.",
				"produces": [
					"application/json"
				],
				"tags": [
					"inventory"
				],
				"summary": "Delete device",
				"parameters": [
					{
						"type": "string",
						"description": "Device ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			}
		},
		"/inventory/devices/{id}/children": {
			"get": {
				"description": "Lists the direct children of a device.",
				"produces": [
					"application/json"
				],
				"tags": [
					"inventory"
				],
				"summary": "List children",
				"parameters": [
					{
						"type": "string",
						"description": "Device ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"$ref": "#/definitions/models.PonDevice"
							}
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			}
		},
		"/inventory/devices/{id}/stages": {
			"get": {
				"description": "Reconstructs the splitter chain between a device and its OLT.",
				"produces": [
					"application/json"
				],
				"tags": [
					"inventory"
				],
				"summary": "Stage history",
				"parameters": [
					{
						"type": "string",
						"description": "Device ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/roles.StageHistory"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.APIProblem"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"models.APIProblem": {
			"type": "object",
			"properties": {
				"type": {
					"type": "string",
					"example": "https://ponplan.dev/problems/bad-request"
				},
				"title": {
					"type": "string",
					"example": "Bad Request"
				},
				"status": {
					"type": "integer",
					"example": 400
				},
				"detail": {
					"type": "string",
					"example": "subscriber_count must be positive"
				},
				"instance": {
					"type": "string",
					"example": "/api/v1/planner/plan"
				}
			}
		},
		"models.PonDevice": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"name": {
					"type": "string",
					"example": "OLT-North-01"
				},
				"device_type": {
					"type": "string",
					"example": "olt"
				},
				"type_code": {
					"type": "string",
					"example": "gpon"
				},
				"parent_id": {
					"type": "string"
				},
				"declared_ports": {
					"type": "integer",
					"example": 16
				},
				"active_ports": {
					"type": "integer"
				},
				"location": {
					"type": "string"
				},
				"notes": {
					"type": "string"
				},
				"created_at": {
					"type": "string"
				},
				"updated_at": {
					"type": "string"
				}
			}
		},
		"inventory.CreateDeviceRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string",
					"example": "MS Elm Street"
				},
				"device_type": {
					"type": "string",
					"example": "ms"
				},
				"type_code": {
					"type": "string",
					"example": "1x16"
				},
				"parent_id": {
					"type": "string"
				},
				"declared_ports": {
					"type": "integer",
					"example": 0
				},
				"location": {
					"type": "string"
				},
				"notes": {
					"type": "string"
				}
			}
		},
		"roles.StageRecord": {
			"type": "object",
			"properties": {
				"device_id": {
					"type": "string"
				},
				"device_name": {
					"type": "string"
				},
				"device_type": {
					"type": "string",
					"example": "ms"
				},
				"splitter_type": {
					"type": "string",
					"example": "1x16"
				}
			}
		},
		"roles.StageHistory": {
			"type": "object",
			"properties": {
				"device_id": {
					"type": "string"
				},
				"olt_id": {
					"type": "string"
				},
				"pon_type": {
					"type": "string",
					"example": "gpon"
				},
				"subscriber_count": {
					"type": "integer",
					"example": 24
				},
				"stages": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/roles.StageRecord"
					}
				}
			}
		},
		"planner.PlanRequest": {
			"type": "object",
			"properties": {
				"subscriber_count": {
					"type": "integer",
					"example": 24
				},
				"pon_type": {
					"type": "string",
					"example": "gpon"
				}
			}
		},
		"planner.PlanResponse": {
			"type": "object",
			"properties": {
				"topology": {
					"$ref": "#/definitions/topology.TopologyPlan"
				},
				"validation": {
					"$ref": "#/definitions/topology.ValidationResult"
				},
				"recommendations": {
					"type": "array",
					"items": {
						"type": "string"
					}
				},
				"diagram": {
					"$ref": "#/definitions/topology.Diagram"
				},
				"rules": {
					"$ref": "#/definitions/topology.RulesSnapshot"
				}
			}
		},
		"planner.ValidateRequest": {
			"type": "object",
			"properties": {
				"subscriber_count": {
					"type": "integer",
					"example": 40
				},
				"pon_type": {
					"type": "string",
					"example": "gpon"
				},
				"stages": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/topology.StageSpec"
					}
				}
			}
		},
		"planner.ValidateResponse": {
			"type": "object",
			"properties": {
				"topology": {
					"$ref": "#/definitions/topology.TopologyPlan"
				},
				"validation": {
					"$ref": "#/definitions/topology.ValidationResult"
				},
				"recommendations": {
					"type": "array",
					"items": {
						"type": "string"
					}
				},
				"stage_history": {
					"$ref": "#/definitions/roles.StageHistory"
				}
			}
		},
		"planner.DevicesRequest": {
			"type": "object",
			"properties": {
				"devices": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/topology.DeviceSnapshot"
					}
				}
			}
		},
		"topology.StageSpec": {
			"type": "object",
			"properties": {
				"device_type": {
					"type": "string",
					"example": "ms"
				},
				"splitter_type": {
					"type": "string",
					"example": "1x16"
				}
			}
		},
		"topology.SplitterStage": {
			"type": "object",
			"properties": {
				"stage_index": {
					"type": "integer",
					"example": 1
				},
				"role": {
					"type": "string",
					"example": "ms"
				},
				"splitter_type": {
					"type": "string",
					"example": "1x16"
				},
				"insertion_loss_db": {
					"type": "number",
					"example": 13
				},
				"cumulative_loss_db": {
					"type": "number",
					"example": 13
				}
			}
		},
		"topology.TopologyPlan": {
			"type": "object",
			"properties": {
				"subscriber_count": {
					"type": "integer",
					"example": 24
				},
				"pon_type": {
					"type": "string",
					"example": "gpon"
				},
				"shape": {
					"type": "string",
					"example": "tube-system"
				},
				"stages": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/topology.SplitterStage"
					}
				},
				"total_loss_db": {
					"type": "number",
					"example": 20
				},
				"capacity_limit": {
					"type": "integer",
					"example": 128
				},
				"saturated": {
					"type": "boolean"
				}
			}
		},
		"topology.Issue": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string",
					"example": "CAPACITY_EXCEEDED"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"topology.ValidationResult": {
			"type": "object",
			"properties": {
				"is_valid": {
					"type": "boolean"
				},
				"errors": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/topology.Issue"
					}
				},
				"warnings": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/topology.Issue"
					}
				}
			}
		},
		"topology.DiagramNode": {
			"type": "object",
			"properties": {
				"position": {
					"type": "integer",
					"example": 1
				},
				"role": {
					"type": "string",
					"example": "ms"
				},
				"label": {
					"type": "string",
					"example": "MS 1x16"
				},
				"splitter_type": {
					"type": "string",
					"example": "1x16"
				},
				"loss_db": {
					"type": "number",
					"example": 13
				},
				"cumulative_loss_db": {
					"type": "number",
					"example": 13
				}
			}
		},
		"topology.Diagram": {
			"type": "object",
			"properties": {
				"nodes": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/topology.DiagramNode"
					}
				},
				"text": {
					"type": "string",
					"example": "OLT (GPON) -> MS 1x16 [13.0 dB] -> SUBMS 1x4 [20.0 dB] -> 24 customers"
				}
			}
		},
		"topology.RulesSnapshot": {
			"type": "object",
			"properties": {
				"max_passive_loss_db": {
					"type": "number",
					"example": 20
				},
				"splitter_loss_db": {
					"type": "object",
					"additionalProperties": {
						"type": "number"
					}
				},
				"pon_capacity": {
					"type": "object",
					"additionalProperties": {
						"type": "integer"
					}
				},
				"port_counts": {
					"type": "object",
					"additionalProperties": {
						"type": "object",
						"additionalProperties": {
							"type": "integer"
						}
					}
				},
				"tube_system": {
					"type": "array",
					"items": {
						"type": "string"
					}
				},
				"direct_max_subscribers": {
					"type": "integer",
					"example": 11
				},
				"tube_system_capacity": {
					"type": "integer",
					"example": 64
				}
			}
		},
		"topology.DeviceSnapshot": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string",
					"example": "ms-07"
				},
				"name": {
					"type": "string",
					"example": "MS Elm Street"
				},
				"device_type": {
					"type": "string",
					"example": "ms"
				},
				"type_code": {
					"type": "string",
					"example": "1x16"
				},
				"declared_total_ports": {
					"type": "integer",
					"example": 0
				},
				"active_ports": {
					"type": "integer",
					"example": 4
				},
				"parent_id": {
					"type": "string",
					"example": "olt-01"
				}
			}
		},
		"topology.SlotInfo": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"name": {
					"type": "string"
				},
				"device_type": {
					"type": "string"
				},
				"type_code": {
					"type": "string"
				},
				"active_ports": {
					"type": "integer"
				},
				"parent_id": {
					"type": "string"
				},
				"inferred_total_ports": {
					"type": "integer",
					"example": 16
				},
				"total_ports": {
					"type": "integer",
					"example": 16
				},
				"available_ports": {
					"type": "integer",
					"example": 12
				},
				"unknown_type_code": {
					"type": "boolean"
				}
			}
		},
		"topology.PortSummary": {
			"type": "object",
			"properties": {
				"total_capacity": {
					"type": "integer",
					"example": 64
				},
				"total_active": {
					"type": "integer",
					"example": 40
				},
				"total_available": {
					"type": "integer",
					"example": 24
				},
				"utilization_percentage": {
					"type": "number",
					"example": 62.5
				}
			}
		},
		"topology.PortAllocation": {
			"type": "object",
			"properties": {
				"summary": {
					"$ref": "#/definitions/topology.PortSummary"
				},
				"devices_with_available_slots": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/topology.SlotInfo"
					}
				},
				"recommendations": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		},
		"topology.AttachmentRecommendation": {
			"type": "object",
			"properties": {
				"best_olt_connections": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/topology.SlotInfo"
					}
				},
				"best_ms_connections": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/topology.SlotInfo"
					}
				},
				"best_subms_connections": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/topology.SlotInfo"
					}
				},
				"optimal_path": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/topology.SlotInfo"
					}
				},
				"path_connected": {
					"type": "boolean"
				},
				"connected_path": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/topology.SlotInfo"
					}
				}
			}
		},
		"server.HealthResponse": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string",
					"example": "ok"
				},
				"service": {
					"type": "string",
					"example": "ponplan"
				},
				"version": {
					"type": "object",
					"additionalProperties": {
						"type": "string"
					}
				},
				"plugins": {
					"type": "object",
					"additionalProperties": {
						"$ref": "#/definitions/plugin.HealthStatus"
					}
				}
			}
		},
		"plugin.HealthStatus": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string",
					"example": "healthy"
				},
				"message": {
					"type": "string"
				},
				"details": {
					"type": "object",
					"additionalProperties": {
						"type": "string"
					}
				}
			}
		},
		"server.PluginResponse": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string",
					"example": "planner"
				},
				"version": {
					"type": "string",
					"example": "0.1.0"
				},
				"description": {
					"type": "string"
				},
				"required": {
					"type": "boolean"
				},
				"dependencies": {
					"type": "array",
					"items": {
						"type": "string"
					}
				},
				"roles": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "ponplan API",
	Description:      "PON splitter topology planning, validation and port allocation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
