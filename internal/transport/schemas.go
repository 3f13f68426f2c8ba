package transport

import "github.com/santhosh-tekuri/jsonschema/v5"

const dropZoneSchema = `{
  "type": "object",
  "required": ["drop_zone_pos"],
  "properties": {
    "drop_zone_pos": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["x", "y"],
        "properties": {"x": {"type": "number"}, "y": {"type": "number"}}
      }
    }
  }
}`

const statusSchema = `{
  "type": "object",
  "required": ["currentStep", "droppedBoxes"],
  "properties": {
    "currentStep": {"type": "integer", "minimum": 0},
    "droppedBoxes": {"type": "integer", "minimum": 0}
  }
}`

const robotsSchema = `{
  "type": "object",
  "required": ["robots_attributes"],
  "properties": {
    "robots_attributes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["x", "y", "z", "has_box", "unique_id"],
        "properties": {
          "x": {"type": "number"},
          "y": {"type": "number"},
          "z": {"type": "number"},
          "has_box": {"type": "boolean"},
          "unique_id": {"type": "integer"}
        }
      }
    }
  }
}`

const obstaclesSchema = `{
  "type": "object",
  "required": ["obstacles_attributes"],
  "properties": {
    "obstacles_attributes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["x", "y", "z", "tag", "unique_id"],
        "properties": {
          "x": {"type": "number"},
          "y": {"type": "number"},
          "z": {"type": "number"},
          "tag": {"enum": ["box", "shelf", "border"]},
          "picked_up": {"type": "boolean"},
          "unique_id": {"type": "integer"}
        }
      }
    }
  }
}`

var (
	dropZoneValidator  = jsonschema.MustCompileString("https://warehouse-viz.local/schemas/drop_zone.json", dropZoneSchema)
	statusValidator    = jsonschema.MustCompileString("https://warehouse-viz.local/schemas/status.json", statusSchema)
	robotsValidator    = jsonschema.MustCompileString("https://warehouse-viz.local/schemas/robots.json", robotsSchema)
	obstaclesValidator = jsonschema.MustCompileString("https://warehouse-viz.local/schemas/obstacles.json", obstaclesSchema)
)
