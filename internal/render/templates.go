package render

// Message templates per destination. Loaded once at startup as immutable data;
// the renderer never mutates them.
//
// Placeholders: <CAMERA_NAME>, <DETECTIONS>, <TIME>, <ENDPOINT_URL>, plus the
// per-destination asset reference (<IMG_ID> for Slack, <IMG_URI> for Matrix).

// MatrixTemplate is the full m.room.message event content sent to a room.
const MatrixTemplate = `{
  "msgtype": "m.room.message",
  "body": "Detection on <CAMERA_NAME> camera\n\nDetections: <DETECTIONS>\nTime <TIME>",
  "formatted_body": "<strong>Detection on <CAMERA_NAME> camera</strong><br><br><strong>Detections</strong><br><DETECTIONS><br><br><strong>Time</strong><br><TIME>",
  "format": "org.matrix.custom.html",
  "url": "<IMG_URI>"
}`

// SlackTemplate is the Block Kit payload posted via chat.postMessage. The
// image block references the uploaded file by id rather than by URL, so the
// upload must be completed (and settled) before this renders into a working
// message.
const SlackTemplate = `[
  {
    "type": "divider"
  },
  {
    "type": "image",
    "slack_file": {
      "id": "<IMG_ID>"
    },
    "alt_text": "camera image"
  },
  {
    "type": "section",
    "text": {
      "type": "mrkdwn",
      "text": "Detection on <CAMERA_NAME> camera"
    },
    "accessory": {
      "type": "button",
      "text": {
        "type": "plain_text",
        "text": "View Alert",
        "emoji": false
      },
      "value": "view_alert",
      "url": "<ENDPOINT_URL>",
      "action_id": "button-action"
    }
  },
  {
    "type": "section",
    "fields": [
      {
        "type": "mrkdwn",
        "text": "Time"
      },
      {
        "type": "plain_text",
        "text": "<TIME>",
        "emoji": false
      },
      {
        "type": "mrkdwn",
        "text": "Detections"
      },
      {
        "type": "plain_text",
        "text": "<DETECTIONS>",
        "emoji": false
      }
    ]
  }
]`

// TelegramTemplate is the HTML photo caption.
const TelegramTemplate = `<b>Detection on <CAMERA_NAME> camera</b>

Detections: <DETECTIONS>
Time: <TIME>

<a href="<ENDPOINT_URL>">View Alert</a>`
